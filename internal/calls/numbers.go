package calls

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadNumbersFile reads phone numbers from a text file, one per line.
// Blank lines and surrounding whitespace are dropped; no E.164 validation
// happens here, the provider rejects malformed numbers itself.
func LoadNumbersFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open numbers file: %w", err)
	}
	defer f.Close()

	var numbers []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		numbers = append(numbers, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read numbers file: %w", err)
	}
	return numbers, nil
}
