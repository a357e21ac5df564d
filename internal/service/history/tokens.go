package history

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// countTokens estimates the prompt size for debug logging. Encoder setup can
// fail offline; in that case the count is reported as zero.
func countTokens(text string) int {
	encoderOnce.Do(func() {
		encoder, _ = tiktoken.GetEncoding("cl100k_base")
	})
	if encoder == nil {
		return 0
	}
	return len(encoder.Encode(text, nil, nil))
}
