package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/videofeed/internal/client/repositories/uploads"
	"github.com/dmitrijs2005/videofeed/internal/client/state"
	"github.com/dmitrijs2005/videofeed/internal/netx"
	"github.com/dmitrijs2005/videofeed/internal/server/models"
)

// uploadHTTPClient has no timeout; the signed URL's expiry bounds the PUT.
var uploadHTTPClient = &http.Client{}

func newListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List videos, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			videos, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(videos)
			}
			return printVideos(cmd.OutOrStdout(), videos)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw JSON array")
	return cmd
}

func printVideos(w io.Writer, videos []models.Video) error {
	if len(videos) == 0 {
		_, err := fmt.Fprintln(w, "No videos")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tCAPTION\tSTATUS\tURL")
	for _, v := range videos {
		status := "-"
		if v.Status != nil {
			status = *v.Status
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", v.ID, v.CreatedAt.Format("2006-01-02 15:04:05"), v.Caption, status, v.URL)
	}
	return tw.Flush()
}

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var caption string
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video file through a signed URL",
		Long: "Requests a signed upload URL for the file's extension, then PUTs the file to it.\n" +
			"The video row exists as soon as the URL is issued.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient(cmd.Context())
			if err != nil {
				return err
			}

			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
			intent, err := client.CreateUploadIntent(cmd.Context(), caption, ext)
			if err != nil {
				return fmt.Errorf("request signed url: %w", err)
			}

			progress := newProgressPrinter(cmd.ErrOrStderr(), intent.FileName)
			err = netx.UploadToPresignedURL(cmd.Context(), uploadHTTPClient, netx.Upload{
				URL:          intent.SignedURL,
				ContentType:  intent.ContentType,
				CacheControl: intent.CacheControl,
				Body:         f,
				Size:         info.Size(),
				Progress:     progress.update,
			})
			progress.done()
			if err != nil {
				return fmt.Errorf("video %d was registered but the upload failed: %w", intent.VideoID, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded video %d as %s\n", intent.VideoID, intent.FileName)

			if err := ctx.recordUpload(cmd.Context(), &uploads.Upload{
				VideoID:  intent.VideoID,
				FileName: intent.FileName,
				Source:   path,
				Caption:  caption,
				Size:     info.Size(),
			}); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: upload not recorded in history: %v\n", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&caption, "caption", "", "Video caption")
	_ = cmd.MarkFlagRequired("caption")
	return cmd
}

// recordUpload appends u to the local history. A disabled state store is
// not an error.
func (c *commandContext) recordUpload(ctx context.Context, u *uploads.Upload) error {
	cfg, err := c.ensureConfig()
	if err != nil || cfg.StatePath == "" {
		return err
	}
	u.Server = cfg.ServerURL
	return c.withState(ctx, true, func(st *state.State) error {
		return st.Uploads.Record(ctx, u)
	})
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show files uploaded from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ctx.withState(cmd.Context(), false, func(st *state.State) error {
				list, err := st.Uploads.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printUploads(cmd.OutOrStdout(), list)
			})
			if errors.Is(err, state.ErrNoState) {
				return printUploads(cmd.OutOrStdout(), nil)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries (0 for all)")
	return cmd
}

func printUploads(w io.Writer, list []*uploads.Upload) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No uploads recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VIDEO\tUPLOADED\tSIZE\tOBJECT\tSOURCE\tSERVER")
	for _, u := range list {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", u.VideoID, u.UploadedAt.Format("2006-01-02 15:04:05"), u.Size, u.FileName, u.Source, u.Server)
	}
	return tw.Flush()
}

type progressPrinter struct {
	w       io.Writer
	name    string
	last    int
	started bool
}

func newProgressPrinter(w io.Writer, name string) *progressPrinter {
	return &progressPrinter{w: w, name: name, last: -1}
}

func (p *progressPrinter) update(sent, total int64) {
	if total <= 0 {
		return
	}
	pct := int(sent * 100 / total)
	if pct == p.last {
		return
	}
	p.last = pct
	p.started = true
	fmt.Fprintf(p.w, "\rUploading %s: %3d%%", p.name, pct)
}

func (p *progressPrinter) done() {
	if p.started {
		fmt.Fprintln(p.w)
	}
}

func newCaptionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "caption <id> <text>",
		Short: "Change a video's caption",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			res, err := client.UpdateCaption(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (rows affected: %d)\n", res.Message, res.RowsAffected)
			return nil
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a video and its stored object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			res, err := client.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (rows affected: %d)\n", res.Message, res.RowsAffected)
			return nil
		},
	}
}

func newTranscodeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcode <id>",
		Short: "Submit a transcode job for a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseVideoID(args[0])
			if err != nil {
				return err
			}
			client, err := ctx.apiClient(cmd.Context())
			if err != nil {
				return err
			}
			v, err := client.Transcode(cmd.Context(), id)
			if err != nil {
				return err
			}
			job := ""
			if v.Job != nil {
				job = *v.Job
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Video %d: transcode job %s submitted\n", v.ID, job)
			return nil
		},
	}
}
