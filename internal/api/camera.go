package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camnode/camnode/internal/api/models"
	"github.com/camnode/camnode/internal/v4l2"
)

func pixelFormatData(pf v4l2.PixelFormat) models.PixelFormatData {
	return models.PixelFormatData{
		PixelFormat:  pf.FourCC.String(),
		Width:        pf.Width,
		Height:       pf.Height,
		BytesPerLine: pf.BytesPerLine,
		SizeImage:    pf.SizeImage,
	}
}

func (s *Server) controlData(name string, ctl v4l2.Control) models.ControlData {
	data := models.ControlData{
		Name:    name,
		Type:    ctl.Type.String(),
		Min:     ctl.Min,
		Max:     ctl.Max,
		Default: ctl.Default,
	}
	for _, item := range ctl.MenuItems {
		data.Menu = append(data.Menu, models.MenuItemData{Index: item.Index, Name: item.Name})
	}
	if value, err := s.options.Controls.Value(name); err == nil {
		data.Value = value
	} else {
		s.logger.Warn("Control read failed", "control", name, "error", err)
		data.Value = ctl.Default
	}
	return data
}

// registerCameraRoutes sets up the capture device endpoints
func (s *Server) registerCameraRoutes() {
	opts := s.options

	// Camera summary
	huma.Register(s.api, huma.Operation{
		OperationID: "get-camera",
		Method:      http.MethodGet,
		Path:        "/api/camera",
		Summary:     "Camera",
		Description: "Get the managed camera's identity, streaming state and negotiated format",
		Tags:        []string{"camera"},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.CameraResponse, error) {
		return &models.CameraResponse{
			Body: models.CameraData{
				Path:      opts.Device.Path,
				Name:      opts.Device.Name,
				Card:      opts.Device.Card,
				Driver:    opts.Device.Driver,
				BusInfo:   opts.Device.BusInfo,
				Version:   opts.Device.Version,
				Streaming: opts.Camera.Running(),
				Format:    pixelFormatData(opts.Camera.Format()),
			},
		}, nil
	})

	// Format enumeration
	huma.Register(s.api, huma.Operation{
		OperationID: "list-formats",
		Method:      http.MethodGet,
		Path:        "/api/camera/formats",
		Summary:     "List formats",
		Description: "List the image formats and discrete frame sizes the device supports",
		Tags:        []string{"camera"},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.FormatsResponse, error) {
		formats := make([]models.ImageFormatData, 0, len(opts.Formats))
		for _, f := range opts.Formats {
			entry := models.ImageFormatData{
				PixelFormat: f.FourCC.String(),
				Description: f.Description,
				Compressed:  f.Compressed,
				Emulated:    f.Emulated,
			}
			if opts.FrameSizes != nil {
				for _, fs := range opts.FrameSizes(f.FourCC) {
					entry.FrameSizes = append(entry.FrameSizes, models.FrameSizeData{Width: fs.Width, Height: fs.Height})
				}
			}
			formats = append(formats, entry)
		}
		return &models.FormatsResponse{
			Body: models.FormatsData{Formats: formats, Count: len(formats)},
		}, nil
	})

	// Format negotiation
	huma.Register(s.api, huma.Operation{
		OperationID: "set-format",
		Method:      http.MethodPut,
		Path:        "/api/camera/format",
		Summary:     "Set format",
		Description: "Negotiate a capture format. The driver may substitute the closest supported layout; the response carries the format actually in effect.",
		Tags:        []string{"camera"},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Body models.SetFormatBody
	}) (*models.SetFormatResponse, error) {
		cc, err := v4l2.ParseFourCC(input.Body.PixelFormat)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity("Invalid pixel format code", err)
		}
		got, err := opts.Camera.SetFormat(v4l2.PixelFormat{
			FourCC: cc,
			Width:  input.Body.Width,
			Height: input.Body.Height,
		})
		if err != nil {
			if errors.Is(err, v4l2.ErrFormatRejected) {
				return nil, huma.Error422UnprocessableEntity("Device rejected the format", err)
			}
			return nil, huma.Error500InternalServerError("Failed to apply format", err)
		}
		if opts.OnFormatApplied != nil {
			opts.OnFormatApplied(got)
		}
		return &models.SetFormatResponse{Body: pixelFormatData(got)}, nil
	})

	// Control enumeration
	huma.Register(s.api, huma.Operation{
		OperationID: "list-controls",
		Method:      http.MethodGet,
		Path:        "/api/camera/controls",
		Summary:     "List controls",
		Description: "List the device's adjustable controls with their current values",
		Tags:        []string{"controls"},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.ControlsResponse, error) {
		names := opts.Controls.Names()
		controls := make([]models.ControlData, 0, len(names))
		for _, name := range names {
			ctl, ok := opts.Controls.Lookup(name)
			if !ok {
				continue
			}
			controls = append(controls, s.controlData(name, ctl))
		}
		return &models.ControlsResponse{
			Body: models.ControlsData{Controls: controls, Count: len(controls)},
		}, nil
	})

	// Single control read
	huma.Register(s.api, huma.Operation{
		OperationID: "get-control",
		Method:      http.MethodGet,
		Path:        "/api/camera/controls/{name}",
		Summary:     "Get control",
		Description: "Get one control's descriptor and current value",
		Tags:        []string{"controls"},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Name string `path:"name" example:"brightness" doc:"Normalized control name"`
	}) (*models.ControlResponse, error) {
		ctl, ok := opts.Controls.Lookup(input.Name)
		if !ok {
			return nil, huma.Error404NotFound("Unknown control: " + input.Name)
		}
		return &models.ControlResponse{Body: s.controlData(input.Name, ctl)}, nil
	})

	// Control write
	huma.Register(s.api, huma.Operation{
		OperationID: "set-control",
		Method:      http.MethodPut,
		Path:        "/api/camera/controls/{name}",
		Summary:     "Set control",
		Description: "Apply a value to one device control",
		Tags:        []string{"controls"},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Name string `path:"name" example:"brightness" doc:"Normalized control name"`
		Body models.SetControlBody
	}) (*models.ControlResponse, error) {
		ctl, ok := opts.Controls.Lookup(input.Name)
		if !ok {
			return nil, huma.Error404NotFound("Unknown control: " + input.Name)
		}
		if err := opts.Controls.Set(input.Name, input.Body.Value); err != nil {
			switch {
			case errors.Is(err, v4l2.ErrControlUnsupported):
				return nil, huma.Error422UnprocessableEntity("Control cannot be set", err)
			case errors.Is(err, v4l2.ErrControlWrite):
				return nil, huma.Error500InternalServerError("Device rejected the value", err)
			default:
				return nil, huma.Error422UnprocessableEntity("Invalid control value", err)
			}
		}
		if opts.OnControlApplied != nil {
			opts.OnControlApplied(input.Name, input.Body.Value)
		}
		return &models.ControlResponse{Body: s.controlData(input.Name, ctl)}, nil
	})

	// Stream state toggle
	huma.Register(s.api, huma.Operation{
		OperationID: "set-stream-state",
		Method:      http.MethodPut,
		Path:        "/api/camera/stream",
		Summary:     "Stream state",
		Description: "Start or stop the capture loop",
		Tags:        []string{"camera"},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Body models.StreamStateBody
	}) (*models.StreamStateResponse, error) {
		var err error
		if input.Body.Streaming {
			// Background context: the loop must outlive this request.
			err = opts.Camera.Start(context.Background())
		} else {
			err = opts.Camera.Stop()
		}
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to change stream state", err)
		}
		if opts.OnStreamState != nil {
			opts.OnStreamState(input.Body.Streaming)
		}
		return &models.StreamStateResponse{
			Body: models.StreamStateData{
				Streaming: opts.Camera.Running(),
				ChangedAt: time.Now().UTC(),
			},
		}, nil
	})

	// Device discovery
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List devices",
		Description: "List capture-capable video device nodes on this machine",
		Tags:        []string{"devices"},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct{}) (*models.DevicesResponse, error) {
		if opts.Discover == nil {
			return &models.DevicesResponse{Body: models.DevicesData{}}, nil
		}
		list, err := opts.Discover()
		if err != nil {
			return nil, huma.Error500InternalServerError("Device enumeration failed", err)
		}
		return &models.DevicesResponse{
			Body: models.DevicesData{Devices: list, Count: len(list)},
		}, nil
	})
}
