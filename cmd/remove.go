package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/chaos-io/cutout/config"
	"github.com/chaos-io/cutout/matting"
	"github.com/chaos-io/cutout/segment"
	"github.com/chaos-io/cutout/util"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewRemoveCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "remove <image>",
		Short: "Remove the background of a single image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			segmenter := segment.NewLoader(
				segment.NewBodyPix(opts.cfg.Model.Endpoint, opts.cfg.Model.LoadTimeout, opts.cfg.Model.RequestTimeout),
				opts.cfg.Model.Net,
				opts.cfg.Model.LoadTimeout,
			)
			out, err := removeBackground(cmd.Context(), opts.cfg, segmenter, args[0], output)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PNG path (default: "+matting.DownloadName+" next to the input)")
	return cmd
}

// removeBackground 与 HTTP 服务走同一条流水线，返回输出路径
func removeBackground(ctx context.Context, cfg *config.Config, loader *segment.Loader, input, output string) (string, error) {
	defer util.Trace("remove background", zap.String("input", input))()

	data, err := util.ReadImageFile(input, cfg.Upload.MaxSize)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", input, err)
	}

	loader.Start(ctx)
	if _, err := loader.Wait(ctx); err != nil {
		return "", err
	}

	proc := matting.NewProcessor(loader)
	proc.MaxPixels = cfg.Upload.MaxPixels
	res, err := proc.Process(ctx, data, mime.TypeByExtension(filepath.Ext(input)))
	if err != nil {
		return "", err
	}

	png, err := matting.EncodePNG(res.Canvas)
	if err != nil {
		return "", err
	}

	if output == "" {
		output = defaultOutput(input)
	}
	if err := util.WriteFile(output, png); err != nil {
		return "", fmt.Errorf("write %s: %w", output, err)
	}
	return output, nil
}

// defaultOutput 输入旁的 background-removed.png，已存在时加 ksuid 前缀
func defaultOutput(input string) string {
	out := filepath.Join(filepath.Dir(input), matting.DownloadName)
	if _, err := os.Stat(out); err == nil {
		out = filepath.Join(filepath.Dir(input), ksuid.New().String()+"_"+matting.DownloadName)
	}
	return out
}
