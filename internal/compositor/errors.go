package compositor

// InvalidSpecError reports a watermark configuration that can never render;
// it is returned before any drawing happens, so partial output is never
// produced.
type InvalidSpecError struct {
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return "invalid watermark spec: " + e.Reason
}

// FontRenderError reports that the font resource could not render the
// requested text.
type FontRenderError struct {
	Text string
	Err  error
}

func (e *FontRenderError) Error() string {
	return "failed to render text " + e.Text + ": " + e.Err.Error()
}

func (e *FontRenderError) Unwrap() error {
	return e.Err
}
