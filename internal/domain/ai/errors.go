package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrNoTextContent indicates the provider reply carried no text-typed content block.
var ErrNoTextContent = errors.New("ai reply has no text content")
