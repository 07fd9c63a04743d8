// Package llm provides text generation clients for farming recommendations.
// It supports Gemini, OpenAI and Anthropic, with rate limiting and retry
// applied uniformly by the client returned from NewClient.
package llm
