package tune

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Write emits one "name value" line per parameter followed by a blank line.
func (s *Set) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, p := range s.params {
		if _, err := fmt.Fprintf(bw, "%s %d\n", p.Name, p.Current); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// Read applies "name value" lines to the set. Blank lines are skipped. Lines
// naming unknown parameters or carrying bad values are reported in the
// returned error but do not stop the rest of the input from being applied.
func (s *Set) Read(r io.Reader) error {
	var errs []error
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		name, value, ok := strings.Cut(text, " ")
		if !ok {
			errs = append(errs, fmt.Errorf("line %d: missing value for %q", line, name))
			continue
		}
		i, err := s.Find(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		v, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: value for %s: %w", line, name, err))
			continue
		}
		s.SetValue(i, v)
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadFile returns the default set with the values in path applied.
func LoadFile(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tune file: %w", err)
	}
	defer f.Close()

	s := Defaults()
	if err := s.Read(f); err != nil {
		return nil, fmt.Errorf("read tune file %s: %w", path, err)
	}
	if err := s.Check(); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("tune parameters out of bounds")
	}
	return s, nil
}
