package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/pookalam/internal/app"
	"github.com/irfansharif/pookalam/internal/render"
	"github.com/irfansharif/pookalam/internal/stylize"
)

const repeatInterval = 125 * time.Millisecond // time between successive randomizations/rotations when pressed down

// Surface sizes selected by the number keys.
var presetSizes = map[glfw.Key]int{
	glfw.Key1: 400,
	glfw.Key2: 600,
	glfw.Key3: 800,
}

// EventHandlers manages all event handling for the preview window.
type EventHandlers struct {
	window  *glfw.Window
	session *app.Session
	view    *app.View
	rng     *rand.Rand
	output  string

	// Dirty is set whenever the session changed and the surface needs to be
	// re-rendered and uploaded.
	Dirty bool

	// Space randomizes, shift+space steps back through earlier rotations. If
	// held down, we do so continuously.
	spaceHeld, shiftHeld bool
	lastRegenTime        time.Time

	// Left/Right rotate the palette by one. They also do so continuously if
	// held.
	rotateHeld     bool
	rotateDelta    int
	lastRotateTime time.Time

	// Dropped files are decoded off the GL thread, one at a time, until one
	// of them loads.
	dropQueue    []string
	decoding     <-chan stylize.Result
	decodingName string
}

// NewEventHandlers creates a new event handlers manager.
func NewEventHandlers(window *glfw.Window, session *app.Session, view *app.View, seed int64, output string) *EventHandlers {
	eh := &EventHandlers{
		window:         window,
		session:        session,
		view:           view,
		rng:            rand.New(rand.NewSource(seed)),
		output:         output,
		Dirty:          true,
		lastRegenTime:  time.Now(),
		lastRotateTime: time.Now(),
	}
	eh.SetupCallbacks(window)
	return eh
}

// SetupCallbacks configures all GLFW event callbacks.
func (eh *EventHandlers) SetupCallbacks(window *glfw.Window) {
	window.SetKeyCallback(func(wnd *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		eh.handleKey(key, action, mods) // for various actions
	})
	window.SetDropCallback(func(wnd *glfw.Window, names []string) {
		eh.handleDrop(names) // for loading a portrait
	})
	window.SetFramebufferSizeCallback(func(wnd *glfw.Window, newW, newH int) {
		eh.view.SetViewport(newW, newH) // for window resize
	})
}

// handleKey handles keyboard input events.
func (eh *EventHandlers) handleKey(key glfw.Key, action glfw.Action, mods glfw.ModifierKey) {
	switch key {
	case glfw.KeySpace:
		eh.handleRandomizeKeys(action, mods)
	case glfw.KeyLeft:
		eh.handleRotateKeys(action, -1)
	case glfw.KeyRight:
		eh.handleRotateKeys(action, 1)
	case glfw.Key1, glfw.Key2, glfw.Key3:
		if action == glfw.Press {
			eh.handleSizeKey(presetSizes[key])
		}
	case glfw.KeyS:
		if action == glfw.Press {
			eh.handleExportKey()
		}
	case glfw.KeyC:
		if action == glfw.Press {
			eh.session.ClearFace()
			eh.Dirty = true
		}
	case glfw.KeyEscape:
		if action == glfw.Press {
			eh.window.SetShouldClose(true)
		}
	}
}

// handleRandomizeKeys handles space and shift+space presses/releases.
func (eh *EventHandlers) handleRandomizeKeys(action glfw.Action, mods glfw.ModifierKey) {
	shiftHeld := (mods & glfw.ModShift) != 0

	switch action {
	case glfw.Press:
		if shiftHeld {
			eh.shiftHeld = true
			eh.spaceHeld = false
		} else {
			eh.spaceHeld = true
			eh.shiftHeld = false
		}
		eh.performRandomize(!shiftHeld)
		eh.lastRegenTime = time.Now()

	case glfw.Release:
		eh.spaceHeld = false
		eh.shiftHeld = false

	case glfw.Repeat:
		// Ignore repeat events - we handle continuous randomization ourselves
		// to ensure consistent timing.
	}
}

// handleRotateKeys handles left/right presses, and also releases for
// continuous rotation.
func (eh *EventHandlers) handleRotateKeys(action glfw.Action, delta int) {
	switch action {
	case glfw.Press:
		eh.rotateHeld = true
		eh.rotateDelta = delta
		eh.performRotate(delta)
		eh.lastRotateTime = time.Now()

	case glfw.Release:
		eh.rotateHeld = false

	case glfw.Repeat:
		// Ignore repeat events, as above.
	}
}

// handleContinuousRandomize randomizes while space is held.
func (eh *EventHandlers) handleContinuousRandomize() {
	if !(eh.spaceHeld || eh.shiftHeld) {
		return // nothing to do
	}

	now := time.Now()
	if now.Sub(eh.lastRegenTime) < repeatInterval {
		return // not enough time has passed since the last randomization
	}

	eh.performRandomize(eh.spaceHeld /* forward */)
	eh.lastRegenTime = now
}

// handleContinuousRotate rotates while left/right is held.
func (eh *EventHandlers) handleContinuousRotate() {
	if !eh.rotateHeld {
		return // nothing to do
	}

	now := time.Now()
	if now.Sub(eh.lastRotateTime) < repeatInterval {
		return // not enough time has passed since the last rotation
	}

	eh.performRotate(eh.rotateDelta)
	eh.lastRotateTime = now
}

// performRandomize picks a new rotation, or steps back to the previous one.
func (eh *EventHandlers) performRandomize(forward bool) {
	var rotation int
	var err error
	if forward {
		rotation, err = eh.session.Randomize(eh.rng)
	} else {
		rotation, err = eh.session.Back()
	}
	if err != nil {
		log.Printf("WARNING: Failed to change rotation: %v", err)
		return
	}
	runtimeLogger.Printf("Rotation: %d", rotation)
	eh.Dirty = true
}

func (eh *EventHandlers) performRotate(delta int) {
	if err := eh.session.Rotate(delta); err != nil {
		log.Printf("WARNING: Failed to rotate palette: %v", err)
		return
	}
	eh.Dirty = true
}

func (eh *EventHandlers) handleSizeKey(size int) {
	if err := eh.session.SetSize(size); err != nil {
		log.Printf("WARNING: Failed to resize surface: %v", err)
		return
	}
	eh.Dirty = true
}

// handleExportKey writes the current surface to the output file.
func (eh *EventHandlers) handleExportKey() {
	img, req, err := eh.session.Render(context.Background())
	if err != nil || img == nil {
		log.Printf("WARNING: Nothing to export: %v", err)
		return
	}
	f, err := os.Create(eh.output)
	if err != nil {
		log.Printf("WARNING: Failed to create %s: %v", eh.output, err)
		return
	}
	defer f.Close()
	if err := render.EncodePNG(f, img); err != nil {
		log.Printf("WARNING: Failed to export %s: %v", eh.output, err)
		return
	}
	log.Printf("Exported %dpx pookalam (rotation %d) to %s", req.Size, req.Rotation, eh.output)
}

// handleDrop queues dropped files; the first one that decodes as a photo
// becomes the portrait.
func (eh *EventHandlers) handleDrop(names []string) {
	eh.dropQueue = append(eh.dropQueue[:0], names...)
	if eh.decoding == nil {
		eh.startNextDecode()
	}
}

// startNextDecode reads the next queued file and starts decoding it.
func (eh *EventHandlers) startNextDecode() {
	for len(eh.dropQueue) > 0 {
		name := eh.dropQueue[0]
		eh.dropQueue = eh.dropQueue[1:]
		data, err := os.ReadFile(name)
		if err != nil {
			log.Printf("WARNING: Ignoring dropped file %s: %v", name, err)
			continue
		}
		eh.decodingName = name
		eh.decoding = stylize.DecodeAsync(context.Background(), data, eh.session.MaxUploadPixels())
		return
	}
}

// pollDecode checks, without blocking, whether the pending decode finished.
func (eh *EventHandlers) pollDecode() {
	if eh.decoding == nil {
		return // nothing to do
	}
	var res stylize.Result
	select {
	case res = <-eh.decoding:
	default:
		return // still decoding
	}
	eh.decoding = nil

	err := res.Err
	if err == nil {
		err = eh.session.UploadImage(res.Image)
	}
	if err != nil {
		log.Printf("WARNING: Ignoring dropped file %s: %v", eh.decodingName, err)
		eh.startNextDecode()
		return
	}
	runtimeLogger.Printf("Loaded portrait from %s", eh.decodingName)
	eh.dropQueue = nil
	eh.Dirty = true
}
