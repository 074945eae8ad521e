// Package strategy holds what entry and exit rules share: parameter decoding,
// validation and schema generation.
package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// DecodeParams overlays user params onto out, which must be a pointer to a struct already
// holding the defaults, and validates the result. Unknown keys are rejected.
func DecodeParams(params map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to create params decoder", err)
	}

	if err := decoder.Decode(params); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to decode params", err)
	}

	validate := validator.New()
	if err := validate.Struct(out); err != nil {
		return errors.Wrap(errors.ErrCodeStrategyConfigError, "invalid params", err)
	}

	return nil
}

// EncodeParams flattens a params struct back into a map, used for reporting.
func EncodeParams(in any) map[string]any {
	out := make(map[string]any)
	// a struct of plain fields always decodes into a map
	_ = mapstructure.Decode(in, &out)

	return out
}

// ParamsSchemaJSON reflects a params struct into a JSON schema string.
func ParamsSchemaJSON(name string, params any) (string, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(params)
	schema.Title = name
	schema.Description = fmt.Sprintf("Parameters of the %s strategy", name)

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeStrategyConfigError, "failed to marshal schema", err)
	}

	return string(data), nil
}
