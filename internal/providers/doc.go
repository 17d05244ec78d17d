// Package providers adapts a single OpenAI-shaped chat-completion request to
// each supported LLM backend.
//
// Supported providers: SAP AI Core (OAuth2 client credentials from a service
// key), OpenAI-compatible endpoints (OpenAI, OpenRouter, Ollama, LMStudio),
// Anthropic, and Google Gemini.
//
// A [Provider] only describes how to talk to its backend: where to send the
// request, which headers to set, and how to translate bodies. [Client] owns
// the HTTP round trip and error mapping. There is no retry at this layer.
//
// Use [New] to obtain a Provider from configuration and [NewClient] to wrap it.
package providers
