package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/torchseek/torchseek/internal/models"
	"github.com/torchseek/torchseek/internal/protocol"
)

// echoProbe is a reserved query answered without touching the pipeline, so
// clients can verify the transport end to end.
const echoProbe = "echo:ping"

// ToolHandler returns the function the protocol dispatcher invokes for tool
// calls. It decodes the raw args, applies defaults, and runs the pipeline.
func ToolHandler(engine *Engine, defaultLimit int) func(args json.RawMessage) (interface{}, error) {
	return func(args json.RawMessage) (interface{}, error) {
		var query models.SearchQuery
		if len(args) > 0 {
			if err := json.Unmarshal(args, &query); err != nil {
				return nil, fmt.Errorf("invalid search arguments: %w", err)
			}
		}
		if query.Query == echoProbe {
			return map[string]interface{}{"ok": true}, nil
		}
		if err := query.Validate(defaultLimit); err != nil {
			return nil, &protocol.RPCError{Code: protocol.CodeInvalidParams, Message: err.Error()}
		}
		response, err := engine.Search(context.Background(), query.Query, query.NumResults, query.Filter)
		if err != nil {
			var searchErr *SearchError
			if errors.As(err, &searchErr) {
				return nil, &protocol.RPCError{
					Code:    protocol.CodeInternalError,
					Message: searchErr.Error(),
					Data: map[string]interface{}{
						"query":           searchErr.Query,
						"filter":          searchErr.Filter,
						"elapsed_seconds": searchErr.Elapsed.Seconds(),
					},
				}
			}
			return nil, err
		}
		return response, nil
	}
}
