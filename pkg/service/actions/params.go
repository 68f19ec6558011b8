package actions

import (
	"encoding/json"

	"github.com/mediamate/mediamate/pkg/domain/errors"
)

// BindParams coerces a free-form parameter map into an action's typed params
// struct via a JSON round trip. out should be pre-populated with defaults;
// unknown fields in data are ignored.
func BindParams(data map[string]any, out any) error {
	if len(data) == 0 {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.New(errors.CodeInvalidParameter, "actions", "failed to encode action parameters", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.New(errors.CodeInvalidParameter, "actions", "failed to bind action parameters", err)
	}
	return nil
}
