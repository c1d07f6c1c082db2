package enhance

import (
	"context"
	"fmt"

	"github.com/replicate/replicate-go"
)

// Replicate calls a Replicate-hosted model (Real-ESRGAN by default) and blocks
// until the prediction completes.
type Replicate struct {
	client *replicate.Client
	model  string // "owner/name:version" identifier
}

// NewReplicate creates a provider for the given model identifier.
func NewReplicate(apiToken, model string) (*Replicate, error) {
	client, err := replicate.NewClient(replicate.WithToken(apiToken))
	if err != nil {
		return nil, fmt.Errorf("create replicate client: %w", err)
	}
	return &Replicate{client: client, model: model}, nil
}

// Enhance runs the model with the base64 data URI and scale factor, returning
// the URL of the enhanced image.
func (r *Replicate) Enhance(ctx context.Context, imageDataURI string, scale int) (string, error) {
	input := replicate.PredictionInput{
		"image": imageDataURI,
		"scale": scale,
	}
	output, err := r.client.Run(ctx, r.model, input, nil)
	if err != nil {
		return "", fmt.Errorf("run %s: %w", r.model, err)
	}
	return OutputURL(output)
}

// OutputURL extracts the result URL from a prediction output, which is either
// a single URL string or a list of URL strings.
func OutputURL(output interface{}) (string, error) {
	switch v := output.(type) {
	case string:
		return v, nil
	case []interface{}:
		if len(v) == 0 {
			return "", fmt.Errorf("model returned an empty output list")
		}
		s, ok := v[0].(string)
		if !ok {
			return "", fmt.Errorf("unexpected output element type %T", v[0])
		}
		return s, nil
	default:
		return "", fmt.Errorf("unexpected output type %T", output)
	}
}
