// Package app wires the window, renderer, tile cache and marker layer into
// the interactive viewer.
package app

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/rajveermalviya/go-webgpu/wgpu"

	"markermap/internal/camera"
	"markermap/internal/config"
	"markermap/internal/markers"
	"markermap/internal/placesource"
	"markermap/internal/renderer"
	"markermap/internal/tileserver"
	"markermap/pkg/tiles"
)

const (
	DefaultLat  = 52.3676 // Amsterdam
	DefaultLon  = 4.9041
	DefaultZoom = 12

	DefaultWidth  = 1280
	DefaultHeight = 720

	KeyPanSpeed = 10.0

	atlasCellSize = 64
)

// Options configures the viewer start state.
type Options struct {
	Lat        float64
	Lon        float64
	Zoom       int
	IconDir    string
	ServerPort int
}

type App struct {
	window   *glfw.Window
	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	renderer    *renderer.Renderer
	camera      *camera.Camera
	tileCache   *tileserver.TileCache
	tileServer  *tileserver.Server
	markerLayer *markers.Layer
	places      *placesource.Cache

	keys   map[glfw.Key]bool
	keysMu sync.RWMutex

	tileRequests    chan tiles.TileCoord
	stopChan        chan struct{}
	markerFetchBusy atomic.Bool

	width, height int
}

func New(opts Options) (*App, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("GLFW init failed: %w", err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.CocoaRetinaFramebuffer, glfw.True)

	window, err := glfw.CreateWindow(DefaultWidth, DefaultHeight, "markermap", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("window creation failed: %w", err)
	}

	app := &App{
		window:       window,
		width:        DefaultWidth,
		height:       DefaultHeight,
		keys:         make(map[glfw.Key]bool),
		tileRequests: make(chan tiles.TileCoord, 500),
		stopChan:     make(chan struct{}),
		places:       placesource.New(),
	}

	if err := app.initWebGPU(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, err
	}

	cache, err := tileserver.NewTileCache(".tile_cache", 8)
	if err != nil {
		return nil, fmt.Errorf("tile cache creation failed: %w", err)
	}
	app.tileCache = cache

	app.camera = camera.NewCamera(opts.Lat, opts.Lon, opts.Zoom, DefaultWidth, DefaultHeight)

	app.renderer, err = renderer.NewRenderer(app.adapter, app.device, app.queue, app.surface, uint32(DefaultWidth), uint32(DefaultHeight))
	if err != nil {
		return nil, fmt.Errorf("renderer creation failed: %w", err)
	}

	cfg := config.Get()
	app.markerLayer = markers.NewLayer(cfg.Markers.DefaultIcon, float32(cfg.Rendering.MarkerSizePx))

	if cfg.Features.EnableTileServer && opts.ServerPort > 0 {
		app.tileServer = tileserver.NewServer(app.tileCache, app.markerLayer, opts.ServerPort)
		go func() {
			if err := app.tileServer.Start(); err != nil {
				fmt.Printf("Tile server stopped: %v\n", err)
			}
		}()
	}

	app.setupCallbacks()

	// Start tile loaders
	for i := 0; i < 4; i++ {
		go app.tileLoader()
	}

	app.prefetchTiles()
	go app.loadMarkerAtlas(opts.IconDir)
	app.refreshMarkers()

	return app, nil
}

func (app *App) initWebGPU() error {
	app.instance = wgpu.CreateInstance(&wgpu.InstanceDescriptor{
		Backends: wgpu.InstanceBackend_Metal,
	})
	if app.instance == nil {
		return fmt.Errorf("failed to create WebGPU instance")
	}

	app.surface = CreateSurface(app.instance, app.window)
	if app.surface == nil {
		return fmt.Errorf("surface creation failed")
	}

	var err error
	app.adapter, err = app.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface:    app.surface,
		PowerPreference:      wgpu.PowerPreference_HighPerformance,
		ForceFallbackAdapter: false,
	})
	if err != nil {
		// Try without surface constraint
		app.adapter, err = app.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
			PowerPreference: wgpu.PowerPreference_HighPerformance,
		})
		if err != nil {
			return fmt.Errorf("adapter request failed: %w", err)
		}
	}

	props := app.adapter.GetProperties()
	fmt.Printf("GPU: %s (%s)\n", props.Name, props.DriverDescription)

	app.device, err = app.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "MarkermapDevice",
	})
	if err != nil {
		return fmt.Errorf("device request failed: %w", err)
	}

	app.queue = app.device.GetQueue()
	return nil
}

// loadMarkerAtlas performs the one-shot icon texture load. Success installs
// the atlas in both the layer and the renderer; failure parks the layer in
// its failed state and the overlay never draws.
func (app *App) loadMarkerAtlas(iconDir string) {
	if iconDir == "" {
		iconDir = config.Get().Markers.IconDir
	}

	atlas, err := markers.LoadAtlas(iconDir, atlasCellSize)
	if err != nil {
		fmt.Printf("Marker atlas load failed: %v\n", err)
		app.markerLayer.FailTexture()
		return
	}

	if err := app.renderer.SetMarkerAtlas(atlas.Image); err != nil {
		fmt.Printf("Marker atlas upload failed: %v\n", err)
		app.markerLayer.FailTexture()
		return
	}

	app.markerLayer.SetAtlas(atlas)
	fmt.Printf("Marker atlas ready: %d icons\n", len(atlas.Names()))
}

// refreshMarkers fetches places around the camera and replaces the marker
// set. At most one fetch runs at a time; stale requests are skipped.
func (app *App) refreshMarkers() {
	if !config.Get().Features.EnableMarkers {
		return
	}
	if !app.markerFetchBusy.CompareAndSwap(false, true) {
		return
	}

	lat, lon, zoom := app.camera.Lat, app.camera.Lon, app.camera.Zoom

	go func() {
		defer app.markerFetchBusy.Store(false)

		cfg := config.Get()
		ms, err := app.places.MarkersAround(lat, lon, zoom, cfg.Markers.PlaceClasses, cfg.Markers.MaxMarkers)
		if err != nil {
			fmt.Printf("Marker fetch failed: %v\n", err)
			return
		}
		app.markerLayer.SetMarkers(ms)
	}()
}

func (app *App) setupCallbacks() {
	app.window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		app.width = width
		app.height = height
		app.camera.SetViewport(width, height)
		app.renderer.Resize(uint32(width), uint32(height))
		app.prefetchTiles()
	})

	app.window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button == glfw.MouseButtonLeft {
			x, y := w.GetCursorPos()
			if action == glfw.Press {
				app.camera.StartDrag(x, y)
			} else {
				app.camera.EndDrag()
				app.prefetchTiles()
				app.refreshMarkers()
			}
		}
	})

	app.window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if app.camera.IsDragging() {
			app.camera.Drag(x, y)
		}
	})

	app.window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		x, y := w.GetCursorPos()
		if yoff > 0 {
			app.camera.ZoomAtPoint(1, x, y)
		} else if yoff < 0 {
			app.camera.ZoomAtPoint(-1, x, y)
		}
		app.prefetchTiles()
		app.refreshMarkers()
	})

	app.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		app.keysMu.Lock()
		if action == glfw.Press {
			app.keys[key] = true
		} else if action == glfw.Release {
			app.keys[key] = false
		}
		app.keysMu.Unlock()

		// Single-press actions (not held)
		if action == glfw.Press {
			switch key {
			case glfw.KeyEscape:
				w.SetShouldClose(true)
			case glfw.KeySpace:
				app.camera.ZoomOut()
				app.prefetchTiles()
				app.refreshMarkers()
			case glfw.KeyLeftShift, glfw.KeyRightShift:
				app.camera.ZoomIn()
				app.prefetchTiles()
				app.refreshMarkers()
			case glfw.KeyEqual: // also the + key
				app.markerLayer.SetIconSize(float32(config.AdjustMarkerSize(4)))
			case glfw.KeyMinus:
				app.markerLayer.SetIconSize(float32(config.AdjustMarkerSize(-4)))
			}
		}
	})
}

func (app *App) processInput() {
	app.keysMu.RLock()
	defer app.keysMu.RUnlock()

	panX, panY := 0.0, 0.0

	// W/Up = move map down = camera moves up = positive pan
	if app.keys[glfw.KeyW] || app.keys[glfw.KeyUp] {
		panY += KeyPanSpeed
	}
	if app.keys[glfw.KeyS] || app.keys[glfw.KeyDown] {
		panY -= KeyPanSpeed
	}
	if app.keys[glfw.KeyA] || app.keys[glfw.KeyLeft] {
		panX += KeyPanSpeed
	}
	if app.keys[glfw.KeyD] || app.keys[glfw.KeyRight] {
		panX -= KeyPanSpeed
	}

	if panX != 0 || panY != 0 {
		app.camera.Pan(panX, panY)
	}
}

func (app *App) tileLoader() {
	for {
		select {
		case <-app.stopChan:
			return
		case coord := <-app.tileRequests:
			if app.renderer.HasTile(coord) {
				continue
			}
			data, err := app.tileCache.GetTile(coord)
			if err != nil {
				fmt.Printf("Tile load error %s: %v\n", coord.String(), err)
				continue
			}
			if err := app.renderer.UploadTile(coord, data); err != nil {
				fmt.Printf("Upload error %s: %v\n", coord.String(), err)
			}
		}
	}
}

func (app *App) prefetchTiles() {
	for _, coord := range tiles.GetPrefetchTiles(app.camera.Lat, app.camera.Lon, app.camera.Zoom, app.width, app.height) {
		select {
		case app.tileRequests <- coord:
		default:
		}
	}
}

func (app *App) loadVisibleTiles() {
	for _, coord := range tiles.GetVisibleTiles(app.camera.Lat, app.camera.Lon, app.camera.Zoom, app.width, app.height) {
		if !app.renderer.HasTile(coord) {
			select {
			case app.tileRequests <- coord:
			default:
			}
		}
	}
}

func (app *App) Run() error {
	lastTime := time.Now()
	frames := 0

	for !app.window.ShouldClose() {
		glfw.PollEvents()
		app.processInput()
		app.loadVisibleTiles()

		if m, version, ok := app.markerLayer.Mesh(); ok {
			app.renderer.SetMarkerMesh(m, version)
		}

		if err := app.renderer.Render(app.camera); err != nil {
			fmt.Printf("Render error: %v\n", err)
		}

		frames++
		if time.Since(lastTime) >= time.Second {
			app.window.SetTitle(fmt.Sprintf("markermap | Zoom: %d | Markers: %d (%s) | FPS: %d",
				app.camera.Zoom, app.markerLayer.Len(), app.markerLayer.State(), frames))
			frames = 0
			lastTime = time.Now()
		}
	}

	return nil
}

func (app *App) Cleanup() {
	close(app.stopChan)
	if app.tileServer != nil {
		app.tileServer.Stop()
	}
	if app.renderer != nil {
		app.renderer.Release()
	}
	if app.tileCache != nil {
		app.tileCache.Close()
	}
	if app.queue != nil {
		app.queue.Release()
	}
	if app.device != nil {
		app.device.Release()
	}
	if app.adapter != nil {
		app.adapter.Release()
	}
	if app.surface != nil {
		app.surface.Release()
	}
	if app.instance != nil {
		app.instance.Release()
	}
	if app.window != nil {
		app.window.Destroy()
	}
	glfw.Terminate()
}
