// Package browser opens URLs in the user's web browser.
package browser

import (
	"context"
	"fmt"
	"runtime"

	"al.essio.dev/pkg/shellescape"

	"github.com/colonyops/seam/pkg/executil"
)

// runSh is swapped in tests.
var runSh = executil.RunSh

// Open launches the platform browser at the given URL. If command is
// non-empty it is used instead of the platform opener; the URL is appended
// shell-quoted.
func Open(ctx context.Context, command, url string) error {
	opener := command
	if opener == "" {
		opener = platformOpener()
	}
	if opener == "" {
		return fmt.Errorf("no browser opener available for %s", runtime.GOOS)
	}

	if err := runSh(ctx, "", opener+" "+shellescape.Quote(url)); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

func platformOpener() string {
	switch runtime.GOOS {
	case "darwin":
		return "open"
	case "windows":
		return "start"
	default:
		return "xdg-open"
	}
}
