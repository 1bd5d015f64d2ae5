// Package llm streams chat completions from LLM HTTP APIs.
//
// Two provider shapes are supported and selected by NewProvider:
//   - OpenAIClient    - chat-completions API, bearer auth, optional base URL override
//   - AnthropicClient - messages API, x-api-key + anthropic-version headers
//
// Both decode their provider's server-sent-events body into the same Stream of
// text fragments. Errors are *Error values classified by ErrorKind:
//   - ErrConfig         - unknown provider, missing key, bad base URL
//   - ErrNetwork        - transport failures, before or during the stream
//   - ErrAPI            - non-2xx status or a rejected/malformed frame
//   - ErrInvalidRequest - the request body could not be built
//
// Example usage:
//
//	provider, err := llm.NewProvider(llm.Config{Provider: "openai", Model: "gpt-4o-mini", APIKey: key})
//	if err != nil {
//	    return err
//	}
//	stream, err := provider.ChatStream(ctx, system, user)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	text := llm.Collect(stream, func(s string) { fmt.Print(s) }, nil)
package llm
