package helper

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RunID returns a short unique identifier attached to one pipeline run's
// log lines, so interleaved runs in a log file can be told apart.
func RunID() string {
	return uuid.NewString()[:8]
}

// PrettyPrint dumps a value as indented JSON to stdout. CLI convenience
// for inspecting results.
func PrettyPrint(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Msg("could not pretty print value")
		return
	}
	fmt.Println(string(b))
}
