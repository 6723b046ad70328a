package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iconidentify/dyresolve/internal/domain"
	"github.com/iconidentify/dyresolve/internal/downloader"
	"github.com/iconidentify/dyresolve/internal/service"
	"github.com/iconidentify/dyresolve/pkg/douyin"
)

var flagProbe bool

var resolveCmd = &cobra.Command{
	Use:   "resolve <share text or url>",
	Short: "Resolve a share link to its playable video URL",
	Example: `  dyresolve resolve "看看这个 https://v.douyin.com/ABC123/ 超搞笑"
  dyresolve resolve --json --probe https://www.douyin.com/video/7234567890123456789`,
	Args: cobra.MinimumNArgs(1),
	RunE: resolveRun,
}

func init() {
	resolveCmd.Flags().BoolVar(&flagProbe, "probe", false, "Check that the play URL is reachable")
}

// resolveOutput is what the command prints.
type resolveOutput struct {
	*domain.VideoRecord
	Probe *probeOutput `json:"probe,omitempty"`
}

type probeOutput struct {
	Accessible    bool   `json:"accessible"`
	ContentType   string `json:"content_type,omitempty"`
	ContentLength int64  `json:"content_length,omitempty"`
	Error         string `json:"error,omitempty"`
}

func resolveRun(cmd *cobra.Command, args []string) error {
	input := strings.Join(args, " ")
	logger := newLogger(cmd)

	client := douyin.NewClient(cfg.Resolver, logger, clientOptions...)
	svc := service.NewResolveService(client, cfg.Resolver.Timeout, logger)

	rec, err := svc.Resolve(cmd.Context(), input)
	if err != nil {
		var resolveErr *domain.ResolveError
		if errors.As(err, &resolveErr) {
			return fmt.Errorf("%s (%w)", resolveErr.Reason(), err)
		}
		return err
	}
	rec.DurationSeconds = rec.RoundedDuration()

	out := resolveOutput{VideoRecord: rec}
	if flagProbe {
		dl := downloader.NewHTTPDownloader(cfg.Download, logger)
		result, err := dl.Probe(cmd.Context(), rec.VideoPlayURL)
		if err != nil {
			return fmt.Errorf("probe play url: %w", err)
		}
		out.Probe = &probeOutput{
			Accessible:    result.Accessible,
			ContentType:   result.ContentType,
			ContentLength: result.ContentLength,
			Error:         result.Error,
		}
	}

	return printResolved(cmd.OutOrStdout(), out, flagJSON)
}

func printResolved(w io.Writer, out resolveOutput, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	rec := out.VideoRecord
	fmt.Fprintf(w, "Title:    %s\n", rec.Title)
	fmt.Fprintf(w, "Author:   %s\n", rec.Author)
	fmt.Fprintf(w, "ID:       %s\n", rec.AwemeID)
	fmt.Fprintf(w, "Duration: %.1fs\n", rec.DurationSeconds)
	fmt.Fprintf(w, "Play URL: %s\n", rec.VideoPlayURL)
	if p := out.Probe; p != nil {
		if p.Accessible {
			fmt.Fprintf(w, "Probe:    ok (%s, %d bytes)\n", p.ContentType, p.ContentLength)
		} else {
			fmt.Fprintf(w, "Probe:    unreachable (%s)\n", p.Error)
		}
	}
	return nil
}
