package arithshard

import (
	"fmt"
	"os"

	sherrors "github.com/tamirms/arithshard/errors"
)

// OpenInput opens a newline-delimited input file for a single forward scan.
// A missing, unreadable or non-regular path is reported as ErrMalformedInput.
func OpenInput(path string) (*os.File, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", sherrors.ErrMalformedInput)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sherrors.ErrMalformedInput, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", sherrors.ErrMalformedInput, err)
	}
	if !st.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is not a regular file", sherrors.ErrMalformedInput, path)
	}
	adviseSequential(f, st.Size())
	return f, nil
}
