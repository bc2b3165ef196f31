package config

// GenOptions are the sampling parameters sent with a generation call.
// NumCtx 0 means the field is omitted from the request.
type GenOptions struct {
	Temperature float64
	TopP        float64
	NumPredict  int
	NumCtx      int
}

// GenOverrides carries optional caller-supplied parameter overrides. Nil
// fields keep the configured default. Overrides are merged at the call
// boundary so there is no ambient mutable state.
type GenOverrides struct {
	Temperature *float64 `json:"temperature"`
	TopP        *float64 `json:"top_p"`
	NumPredict  *int     `json:"max_predict"`
	NumCtx      *int     `json:"num_ctx"`
}

// Options builds the effective generation options from the configured
// defaults, applying any overrides on top.
func (l LLMConfig) Options(ov *GenOverrides) GenOptions {
	opts := GenOptions{
		Temperature: l.Temperature,
		TopP:        l.TopP,
		NumPredict:  l.NumPredict,
		NumCtx:      l.NumCtx,
	}
	if ov == nil {
		return opts
	}
	if ov.Temperature != nil {
		opts.Temperature = *ov.Temperature
	}
	if ov.TopP != nil {
		opts.TopP = *ov.TopP
	}
	if ov.NumPredict != nil {
		opts.NumPredict = *ov.NumPredict
	}
	if ov.NumCtx != nil && *ov.NumCtx > 0 {
		opts.NumCtx = *ov.NumCtx
	}
	return opts
}
