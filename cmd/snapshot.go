package cmd

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/camnode/camnode/internal/devices"
	"github.com/camnode/camnode/internal/logging"
	"github.com/camnode/camnode/internal/pixconv"
	"github.com/camnode/camnode/internal/v4l2"
)

// CreateSnapshotCmd creates the snapshot command.
func CreateSnapshotCmd() *cobra.Command {
	var output string
	var width, height uint32
	var formatCode string
	var skip int

	cmd := &cobra.Command{
		Use:   "snapshot [device]",
		Short: "Capture one frame to a PNG file",
		Long: `Opens a capture device, optionally negotiates a format, streams a few frames to let ` +
			`the sensor settle, and writes the last one to a PNG file.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("snapshot")

			path, err := devices.ResolvePath(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "resolving device: %v\n", err)
				os.Exit(1)
			}

			dev, err := v4l2.Open(path, logger)
			if err != nil {
				fmt.Fprintf(os.Stderr, "opening %s: %v\n", path, err)
				os.Exit(1)
			}
			defer dev.Close()

			if formatCode != "" || width > 0 || height > 0 {
				want := dev.Format()
				if formatCode != "" {
					cc, err := v4l2.ParseFourCC(formatCode)
					if err != nil {
						fmt.Fprintf(os.Stderr, "invalid format code: %v\n", err)
						os.Exit(1)
					}
					want.FourCC = cc
				}
				if width > 0 {
					want.Width = width
				}
				if height > 0 {
					want.Height = height
				}
				if _, err := dev.RequestFormat(want); err != nil {
					fmt.Fprintf(os.Stderr, "negotiating format: %v\n", err)
					os.Exit(1)
				}
			}

			if err := dev.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "starting stream: %v\n", err)
				os.Exit(1)
			}
			defer dev.Stop()

			// Auto-exposure needs a few frames to converge; keep the
			// last one.
			var data []byte
			var pf v4l2.PixelFormat
			for i := 0; i <= skip; i++ {
				data, pf, err = dev.Capture()
				if err != nil {
					fmt.Fprintf(os.Stderr, "capturing frame: %v\n", err)
					os.Exit(1)
				}
			}

			img, err := snapshotImage(data, pf)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
				os.Exit(1)
			}

			f, err := os.Create(output)
			if err != nil {
				fmt.Fprintf(os.Stderr, "creating %s: %v\n", output, err)
				os.Exit(1)
			}
			defer f.Close()

			if err := png.Encode(f, img); err != nil {
				fmt.Fprintf(os.Stderr, "encoding PNG: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("wrote %s (%s)\n", output, pf)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "snapshot.png", "Output PNG file")
	cmd.Flags().Uint32Var(&width, "width", 0, "Frame width to request")
	cmd.Flags().Uint32Var(&height, "height", 0, "Frame height to request")
	cmd.Flags().StringVarP(&formatCode, "format", "f", "", "Pixel format to request, e.g. YUYV")
	cmd.Flags().IntVar(&skip, "skip", 3, "Frames to discard before the snapshot")
	return cmd
}

func snapshotImage(data []byte, pf v4l2.PixelFormat) (image.Image, error) {
	w, h := int(pf.Width), int(pf.Height)

	if pf.FourCC == v4l2.PixFmtGrey {
		stride := int(pf.BytesPerLine)
		if stride == 0 {
			stride = w
		}
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+w], data[y*stride:y*stride+w])
		}
		return img, nil
	}

	rgb, err := pixconv.Convert(data, pf.FourCC, v4l2.PixFmtRGB24, w, h, int(pf.BytesPerLine))
	if err != nil {
		return nil, fmt.Errorf("converting %s to RGB: %w", pf.FourCC, err)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		img.Pix[i*4+0] = rgb[i*3+0]
		img.Pix[i*4+1] = rgb[i*3+1]
		img.Pix[i*4+2] = rgb[i*3+2]
		img.Pix[i*4+3] = 0xff
	}
	return img, nil
}
