package ids

import (
	"bufio"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

type Denylist = []string

//go:embed denylist.txt
var defaultDenylistStr string
var defaultDenylist Denylist = ParseDenylist(strings.NewReader(defaultDenylistStr))

// LoadDenylist reads a denylist file, one word per line. Blank lines and
// lines starting with `#` are ignored.
func LoadDenylist(filename string) (Denylist, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("os.Open: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	denylist := make(Denylist, 0)
	for scanner.Scan() {
		if word := normaliseDenylistLine(scanner.Text()); word != "" {
			denylist = append(denylist, word)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", filename, err)
	}

	return denylist, nil
}

// ParseDenylist is like LoadDenylist for an in-memory denylist.
func ParseDenylist(r *strings.Reader) Denylist {
	denylist := make(Denylist, 0)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if word := normaliseDenylistLine(scanner.Text()); word != "" {
			denylist = append(denylist, word)
		}
	}
	return denylist
}

func normaliseDenylistLine(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return ""
	}
	return strings.ToLower(line)
}

// IsAllowed returns false if the ID (normalised to lowecase) contains anything
// in the denylist, true otherwise.
func IsAllowed(id string, denylist Denylist) bool {
	normalisedID := strings.ToLower(id)

	for _, bad := range denylist {
		if bad == "" {
			continue
		}

		if strings.Contains(normalisedID, bad) {
			log.Debug().
				Str("normalisedID", normalisedID).
				Str("bad", bad).
				Msg("IsAllowed: normalisedID matches bad word")
			return false
		}
	}
	return true
}
