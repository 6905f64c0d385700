package launcher

import (
	"context"
	"fmt"
	"io"
	"os/exec"

	"sqlcoderd/internal/preset"
)

// DefaultServerBin is the sibling binary shipped alongside
// text-generation-launcher that handles weight downloads.
const DefaultServerBin = "text-generation-server"

// DownloadWeights pre-fetches model weights into the hub cache by running
// text-generation-server download-weights. Running it at deploy time means
// serving processes start from a warm cache instead of downloading on the
// first request.
func DownloadWeights(ctx context.Context, bin string, p preset.Preset, token, cacheDir string, out io.Writer) error {
	if bin == "" {
		bin = DefaultServerBin
	}
	cmd := exec.CommandContext(ctx, bin, p.DownloadArgs()...)
	cmd.Env = engineEnv(token, cacheDir)
	if out != nil {
		cmd.Stdout = out
		cmd.Stderr = out
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("download-weights %s: %w", p.Repo, err)
	}
	return nil
}
