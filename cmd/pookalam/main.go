package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/pookalam/internal/api"
	"github.com/irfansharif/pookalam/internal/app"
	"github.com/irfansharif/pookalam/internal/config"
	"github.com/irfansharif/pookalam/internal/preview"
	"github.com/irfansharif/pookalam/internal/render"
	"github.com/irfansharif/pookalam/internal/ws"
)

const logFlags = log.Ltime | log.Lshortfile

var runtimeLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	// OpenGL contexts are tied to specific OS threads - let's pin to just one.
	runtime.LockOSThread()
	log.SetFlags(logFlags)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	size := flag.Int("size", cfg.Size, "side of the output surface in pixels")
	rotation := flag.Int("rotation", cfg.Rotation, "palette rotation offset")
	seed := flag.Int64("seed", cfg.Seed, "seed for randomized rotations")
	randomize := flag.Bool("randomize", false, "pick the rotation from -seed")
	face := flag.String("face", "", "photo to stylize into the centre")
	out := flag.String("out", cfg.Output, "output file")
	format := flag.String("format", "png", "output format: png or svg")
	serve := flag.Bool("serve", false, "serve the HTTP API on LISTEN_ADDR")
	previewMode := flag.Bool("preview", false, "open an interactive preview window")
	flag.Parse()

	if cfg.DebugRuntime {
		runtimeLogger = log.New(os.Stdout, "[runtime] ", log.Ltime|log.Lmsgprefix)
	}

	cfg.Size, cfg.Rotation, cfg.Seed, cfg.Output = *size, *rotation, *seed, *out
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	session, err := app.NewSession(cfg)
	if err != nil {
		log.Fatalf("Failed to build palette: %v", err)
	}
	if *randomize {
		r, err := session.Randomize(rand.New(rand.NewSource(cfg.Seed)))
		if err != nil {
			log.Fatalf("Failed to randomize rotation: %v", err)
		}
		runtimeLogger.Printf("Seed %d picked rotation %d", cfg.Seed, r)
	}
	if *face != "" {
		if err := loadFace(session, *face); err != nil {
			log.Fatalf("Failed to load face %s: %v", *face, err)
		}
	}

	switch {
	case *serve:
		runServer(cfg, session)
	case *previewMode:
		runPreview(cfg, session)
	default:
		if err := runExport(session, *format, cfg.Output); err != nil {
			log.Fatalf("Failed to export: %v", err)
		}
	}
}

// loadFace reads a photo from disk into the session.
func loadFace(session *app.Session, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return session.Upload(context.Background(), bytes.NewReader(data))
}

// runExport renders the session once and writes it to out.
func runExport(session *app.Session, format, out string) error {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		startTime := time.Now()
		img, req, err := session.Render(context.Background())
		if err != nil {
			return err
		}
		if err := render.EncodePNG(&buf, img); err != nil {
			return err
		}
		runtimeLogger.Printf("Rendered %+v in %s (%d commands)", req, time.Since(startTime), session.Stats().LastCommands)
	case "svg":
		if filepath.Ext(out) == ".png" {
			out = strings.TrimSuffix(out, ".png") + ".svg"
		}
		if err := session.EncodeSVG(&buf, session.Request()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		return err
	}
	log.Printf("Wrote %s", out)
	return nil
}

func runServer(cfg config.Config, session *app.Session) {
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(cfg, session, hub),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func makeTitle(fps float64, req app.RenderRequest, renderStats render.Stats, surfaceStats preview.Stats) string {
	return fmt.Sprintf("Pookalam (%.1f FPS, %dpx, rotation %d, %d commands, %.2fms/render, %d uploads, %.1fMiB texture)",
		fps,
		req.Size,
		req.Rotation,
		renderStats.LastCommands,
		renderStats.LastRenderTimeMs,
		surfaceStats.Uploads,
		float64(surfaceStats.TextureBytes)/(1024.0*1024.0),
	)
}

func runPreview(cfg config.Config, session *app.Session) {
	if err := glfw.Init(); err != nil {
		log.Fatalf("Failed to initialize GLFW: %v", err)
	}
	defer glfw.Terminate()

	// Configure GLFW window hints - use OpenGL 4.1.
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)

	window, err := glfw.CreateWindow(
		960, // width
		960, // height
		"Pookalam",
		nil, nil,
	)
	if err != nil {
		log.Fatalf("Failed to create window: %v", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		log.Fatalf("Failed to initialize OpenGL: %v", err)
	}

	cw, ch := window.GetFramebufferSize()
	view := app.NewView(cw, ch)
	surface := preview.NewSurface()
	defer surface.Delete()

	eventHandlers := NewEventHandlers(window, session, view, cfg.Seed, cfg.Output)

	frameCount := 0
	lastFPSUpdate := time.Now()

	// Main loop.
	for !window.ShouldClose() {
		eventHandlers.handleContinuousRandomize()
		eventHandlers.handleContinuousRotate()
		eventHandlers.pollDecode()

		if eventHandlers.Dirty {
			img, _, err := session.Render(context.Background())
			if err != nil {
				log.Printf("WARNING: Render failed: %v", err)
			} else if img != nil {
				surface.Upload(img)
			}
			eventHandlers.Dirty = false
		}

		w, h := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(w), int32(h))
		gl.ClearColor(1, 1, 1, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)

		surface.Draw(view)
		window.SwapBuffers()
		glfw.PollEvents()

		frameCount++
		now := time.Now()
		if now.Sub(lastFPSUpdate) >= time.Second {
			fps := float64(frameCount) / now.Sub(lastFPSUpdate).Seconds()
			frameCount = 0
			lastFPSUpdate = now

			req := session.Request()
			renderStats := session.Stats()
			surfaceStats := surface.Stats()
			window.SetTitle(makeTitle(fps, req, renderStats, surfaceStats))

			runtimeLogger.Println("=== Performance statistics ===")
			runtimeLogger.Printf("Frame rate:     %.1f FPS", fps)
			runtimeLogger.Printf("Session:        %s, %dpx, rotation %d", session.State(), req.Size, req.Rotation)
			runtimeLogger.Printf("Render time:    %.2f ms (last render, %d commands)", renderStats.LastRenderTimeMs, renderStats.LastCommands)
			runtimeLogger.Printf("Pattern:        %d petals in %d layers", renderStats.LastPetals, renderStats.LastLayers)
			runtimeLogger.Printf("Texture:        %d uploads, %.2f MiB", surfaceStats.Uploads, float64(surfaceStats.TextureBytes)/(1024.0*1024.0))
			runtimeLogger.Println("==============================")
		}
	}
}
