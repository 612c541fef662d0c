// Package parsing turns the raw output of the BDD runner into a results.ResultSet.
// The runner produces one of three shapes: a JSON array of feature records, newline-delimited feature records, or
// "pretty" text. Decoders for each shape are tried in that order and the first one that understands the input wins.
// Parsing never fails: malformed records are dropped and unusable input yields an empty result set.
package parsing

import (
	"bytes"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/rwx-research/conductor/internal/results"
)

// Decoder decodes one specific output shape. It returns an error if the input is not of that shape.
type Decoder interface {
	Decode(raw []byte) ([]results.TestOutcome, error)
}

// Config configures `Parse`
type Config struct {
	Logger   *zap.SugaredLogger
	Decoders []Decoder

	// IgnoredFiles are base names LoadResultFiles never treats as result files, e.g. persisted history
	IgnoredFiles []string
}

// DefaultDecoders is the fixed fallback order used when no decoders are configured
func DefaultDecoders() []Decoder {
	return []Decoder{JSONArrayDecoder{}, NDJSONDecoder{}, PrettyDecoder{}}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse tries every decoder in order and returns the result of the first one that succeeds.
func Parse(raw []byte, cfg Config) results.ResultSet {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	decoders := cfg.Decoders
	if len(decoders) == 0 {
		decoders = DefaultDecoders()
	}

	cleaned := sanitize(raw)
	if len(cleaned) == 0 {
		logger.Debug("Received empty test output, nothing to parse")
		return results.NewResultSet()
	}

	for _, decoder := range decoders {
		outcomes, err := decoder.Decode(cleaned)
		if err != nil {
			logger.Debugf("%T was not capable of parsing the test output: %v", decoder, err)
			continue
		}

		logger.Debugf("%T parsed %d scenario(s)", decoder, len(outcomes))
		return results.NewResultSet(outcomes...)
	}

	logger.Warn("Unable to parse the test output with any of the available decoders")
	return results.NewResultSet()
}

// ParseReader reads everything from `r` and parses it. Read errors are logged and whatever was read is parsed.
func ParseReader(r io.Reader, cfg Config) results.ResultSet {
	raw, err := io.ReadAll(r)
	if err != nil && cfg.Logger != nil {
		cfg.Logger.Warnf("Unable to read the complete test output: %s", err)
	}

	return Parse(raw, cfg)
}

// sanitize drops byte-order-marks & invalid UTF-8 sequences. Windows runners mix encodings in their output.
func sanitize(raw []byte) []byte {
	cleaned := bytes.TrimPrefix(raw, utf8BOM)
	cleaned = bytes.ToValidUTF8(cleaned, nil)
	cleaned = bytes.ReplaceAll(cleaned, []byte("\r\n"), []byte("\n"))
	return []byte(strings.TrimSpace(string(cleaned)))
}
