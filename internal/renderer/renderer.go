// Package renderer draws the basemap tiles and the marker overlay with
// WebGPU. The tile pass places one textured unit quad per visible tile;
// the marker pass draws the indexed quad mesh built by the marker layer.
package renderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/png"
	"sync"
	"unsafe"

	"github.com/rajveermalviya/go-webgpu/wgpu"

	"markermap/internal/camera"
	"markermap/internal/config"
	"markermap/internal/markers"
	"markermap/pkg/mesh"
	"markermap/pkg/tiles"
)

// TileVertex carries position and texture coordinates for the tile pass.
type TileVertex struct {
	Position [2]float32
	TexCoord [2]float32
}

// TileTexture holds GPU resources for a single tile.
type TileTexture struct {
	Texture *wgpu.Texture
	View    *wgpu.TextureView
}

// TileInfo matches the tile shader uniform.
type TileInfo struct {
	OffsetX float32
	OffsetY float32
	ScaleX  float32
	ScaleY  float32
}

// MarkerParams matches the marker shader uniform.
type MarkerParams struct {
	View     [16]float32
	Viewport [2]float32
	Zoom     float32
	Aspect   float32
}

// markerBuffers holds the uploaded marker mesh.
type markerBuffers struct {
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   uint32
	version      uint64
}

func (b *markerBuffers) release() {
	if b.vertexBuffer != nil {
		b.vertexBuffer.Release()
	}
	if b.indexBuffer != nil {
		b.indexBuffer.Release()
	}
	*b = markerBuffers{}
}

// Renderer handles all WebGPU rendering.
type Renderer struct {
	device          *wgpu.Device
	queue           *wgpu.Queue
	surface         *wgpu.Surface
	adapter         *wgpu.Adapter
	swapChain       *wgpu.SwapChain
	swapChainFormat wgpu.TextureFormat
	sampler         *wgpu.Sampler

	tilePipeline *wgpu.RenderPipeline
	tileBGL      *wgpu.BindGroupLayout
	placeholder  *TileTexture
	textures     map[string]*TileTexture
	texturesMu   sync.RWMutex

	markerPipeline *wgpu.RenderPipeline
	markerBGL      *wgpu.BindGroupLayout
	atlasTexture   *TileTexture
	markerMesh     markerBuffers
	markerMu       sync.Mutex

	width  uint32
	height uint32
}

// NewRenderer creates a WebGPU renderer for the given surface.
func NewRenderer(adapter *wgpu.Adapter, device *wgpu.Device, queue *wgpu.Queue, surface *wgpu.Surface, width, height uint32) (*Renderer, error) {
	r := &Renderer{
		adapter:  adapter,
		device:   device,
		queue:    queue,
		surface:  surface,
		width:    width,
		height:   height,
		textures: make(map[string]*TileTexture),
	}

	if err := r.init(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Renderer) init() error {
	r.swapChainFormat = r.surface.GetPreferredFormat(r.adapter)

	var err error
	r.swapChain, err = r.device.CreateSwapChain(r.surface, &wgpu.SwapChainDescriptor{
		Usage:       wgpu.TextureUsage_RenderAttachment,
		Format:      r.swapChainFormat,
		Width:       r.width,
		Height:      r.height,
		PresentMode: wgpu.PresentMode_Fifo,
	})
	if err != nil {
		return fmt.Errorf("swap chain creation failed: %w", err)
	}

	r.sampler, err = r.device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:   wgpu.AddressMode_ClampToEdge,
		AddressModeV:   wgpu.AddressMode_ClampToEdge,
		AddressModeW:   wgpu.AddressMode_ClampToEdge,
		MagFilter:      wgpu.FilterMode_Linear,
		MinFilter:      wgpu.FilterMode_Linear,
		MipmapFilter:   wgpu.MipmapFilterMode_Nearest,
		MaxAnisotrophy: 1,
	})
	if err != nil {
		return fmt.Errorf("sampler creation failed: %w", err)
	}

	if err := r.initTilePipeline(); err != nil {
		return err
	}
	if err := r.initMarkerPipeline(); err != nil {
		return err
	}

	r.placeholder, err = r.createPlaceholder()
	if err != nil {
		return fmt.Errorf("placeholder creation failed: %w", err)
	}

	return nil
}

func (r *Renderer) initTilePipeline() error {
	shader, err := r.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "tile_shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: TileShader},
	})
	if err != nil {
		return fmt.Errorf("tile shader creation failed: %w", err)
	}
	defer shader.Release()

	r.tileBGL, err = r.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "tile_bind_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStage_Vertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingType_Uniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStage_Fragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingType_Filtering},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStage_Fragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleType_Float,
					ViewDimension: wgpu.TextureViewDimension_2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("tile bind group layout creation failed: %w", err)
	}

	layout, err := r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "tile_pipeline_layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.tileBGL},
	})
	if err != nil {
		return fmt.Errorf("tile pipeline layout creation failed: %w", err)
	}
	defer layout.Release()

	r.tilePipeline, err = r.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "tile_pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(TileVertex{})),
				StepMode:    wgpu.VertexStepMode_Vertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormat_Float32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormat_Float32x2, Offset: 8, ShaderLocation: 1},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    r.swapChainFormat,
				Blend:     &wgpu.BlendState_Replace,
				WriteMask: wgpu.ColorWriteMask_All,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopology_TriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("tile pipeline creation failed: %w", err)
	}

	return nil
}

func (r *Renderer) initMarkerPipeline() error {
	shader, err := r.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "marker_shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: MarkerShader},
	})
	if err != nil {
		return fmt.Errorf("marker shader creation failed: %w", err)
	}
	defer shader.Release()

	r.markerBGL, err = r.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "marker_bind_group_layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStage_Vertex,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingType_Uniform},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStage_Fragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingType_Filtering},
			},
			{
				Binding:    2,
				Visibility: wgpu.ShaderStage_Fragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleType_Float,
					ViewDimension: wgpu.TextureViewDimension_2D,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marker bind group layout creation failed: %w", err)
	}

	layout, err := r.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "marker_pipeline_layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.markerBGL},
	})
	if err != nil {
		return fmt.Errorf("marker pipeline layout creation failed: %w", err)
	}
	defer layout.Release()

	alphaBlend := wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactor_SrcAlpha,
			DstFactor: wgpu.BlendFactor_OneMinusSrcAlpha,
			Operation: wgpu.BlendOperation_Add,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactor_One,
			DstFactor: wgpu.BlendFactor_OneMinusSrcAlpha,
			Operation: wgpu.BlendOperation_Add,
		},
	}

	r.markerPipeline, err = r.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "marker_pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     shader,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{{
				ArrayStride: uint64(unsafe.Sizeof(markers.Vertex{})),
				StepMode:    wgpu.VertexStepMode_Vertex,
				Attributes: []wgpu.VertexAttribute{
					{Format: wgpu.VertexFormat_Float32x2, Offset: 0, ShaderLocation: 0},
					{Format: wgpu.VertexFormat_Float32x2, Offset: 8, ShaderLocation: 1},
					{Format: wgpu.VertexFormat_Float32x2, Offset: 16, ShaderLocation: 2},
				},
			}},
		},
		Fragment: &wgpu.FragmentState{
			Module:     shader,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    r.swapChainFormat,
				Blend:     &alphaBlend,
				WriteMask: wgpu.ColorWriteMask_All,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopology_TriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("marker pipeline creation failed: %w", err)
	}

	return nil
}

func (r *Renderer) createPlaceholder() (*TileTexture, error) {
	img := image.NewRGBA(image.Rect(0, 0, tiles.TileSize, tiles.TileSize))
	// Sea blue color
	seaBlue := color.RGBA{R: 160, G: 195, B: 207, A: 255}
	draw.Draw(img, img.Bounds(), &image.Uniform{seaBlue}, image.Point{}, draw.Src)
	return r.createTexture(img)
}

func (r *Renderer) createTexture(img *image.RGBA) (*TileTexture, error) {
	texture, err := r.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "rgba_texture",
		Size: wgpu.Extent3D{
			Width:              uint32(img.Bounds().Dx()),
			Height:             uint32(img.Bounds().Dy()),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension_2D,
		Format:        wgpu.TextureFormat_RGBA8UnormSrgb,
		Usage:         wgpu.TextureUsage_TextureBinding | wgpu.TextureUsage_CopyDst,
	})
	if err != nil {
		return nil, err
	}

	r.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: texture, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspect_All},
		img.Pix,
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: uint32(img.Stride), RowsPerImage: uint32(img.Bounds().Dy())},
		&wgpu.Extent3D{Width: uint32(img.Bounds().Dx()), Height: uint32(img.Bounds().Dy()), DepthOrArrayLayers: 1},
	)

	view, err := texture.CreateView(&wgpu.TextureViewDescriptor{
		Format:          wgpu.TextureFormat_RGBA8UnormSrgb,
		Dimension:       wgpu.TextureViewDimension_2D,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: 1,
		Aspect:          wgpu.TextureAspect_All,
	})
	if err != nil {
		texture.Release()
		return nil, err
	}

	return &TileTexture{Texture: texture, View: view}, nil
}

// UploadTile uploads a tile image to the GPU.
func (r *Renderer) UploadTile(coord tiles.TileCoord, data []byte) error {
	key := coord.String()

	r.texturesMu.RLock()
	_, exists := r.textures[key]
	r.texturesMu.RUnlock()
	if exists {
		return nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return err
	}

	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, image.Point{}, draw.Src)

	tex, err := r.createTexture(rgba)
	if err != nil {
		return err
	}

	r.texturesMu.Lock()
	r.textures[key] = tex
	r.texturesMu.Unlock()

	return nil
}

// HasTile checks if a tile is uploaded.
func (r *Renderer) HasTile(coord tiles.TileCoord) bool {
	r.texturesMu.RLock()
	defer r.texturesMu.RUnlock()
	_, ok := r.textures[coord.String()]
	return ok
}

// SetMarkerAtlas uploads the marker icon atlas.
func (r *Renderer) SetMarkerAtlas(img *image.RGBA) error {
	tex, err := r.createTexture(img)
	if err != nil {
		return fmt.Errorf("atlas upload failed: %w", err)
	}

	r.markerMu.Lock()
	if r.atlasTexture != nil {
		r.atlasTexture.View.Release()
		r.atlasTexture.Texture.Release()
	}
	r.atlasTexture = tex
	r.markerMu.Unlock()

	return nil
}

// SetMarkerMesh uploads the marker mesh if the version is newer than the
// uploaded one. The mesh is replaced wholesale, never patched.
func (r *Renderer) SetMarkerMesh(m mesh.Mesh[markers.Vertex], version uint64) {
	r.markerMu.Lock()
	defer r.markerMu.Unlock()

	if r.markerMesh.version == version && r.markerMesh.indexCount > 0 {
		return
	}

	r.markerMesh.release()
	if len(m.Indices) == 0 {
		return
	}

	vertexBuffer, err := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "marker_vertex_buffer",
		Contents: wgpu.ToBytes(m.Vertices),
		Usage:    wgpu.BufferUsage_Vertex,
	})
	if err != nil {
		fmt.Printf("marker vertex buffer creation failed: %v\n", err)
		return
	}

	indexBuffer, err := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "marker_index_buffer",
		Contents: wgpu.ToBytes(m.Indices),
		Usage:    wgpu.BufferUsage_Index,
	})
	if err != nil {
		vertexBuffer.Release()
		fmt.Printf("marker index buffer creation failed: %v\n", err)
		return
	}

	r.markerMesh = markerBuffers{
		vertexBuffer: vertexBuffer,
		indexBuffer:  indexBuffer,
		indexCount:   uint32(len(m.Indices)),
		version:      version,
	}
}

// Render draws the map and the marker overlay.
func (r *Renderer) Render(cam *camera.Camera) error {
	view, err := r.swapChain.GetCurrentTextureView()
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := r.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{})
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOp_Clear,
			StoreOp:    wgpu.StoreOp_Store,
			ClearValue: wgpu.Color{R: 0.627, G: 0.765, B: 0.812, A: 1.0},
		}},
	})

	r.renderTiles(pass, cam)
	if config.Get().Features.EnableMarkers {
		r.renderMarkers(pass, cam)
	}

	pass.End()

	cmdBuffer, err := encoder.Finish(&wgpu.CommandBufferDescriptor{})
	if err != nil {
		return err
	}
	defer cmdBuffer.Release()

	r.queue.Submit(cmdBuffer)
	r.swapChain.Present()

	return nil
}

func (r *Renderer) renderTiles(pass *wgpu.RenderPassEncoder, cam *camera.Camera) {
	pass.SetPipeline(r.tilePipeline)

	// Unit quad in bottom-left, bottom-right, top-right, top-left order,
	// indexed by the same mesher the marker layer uses.
	quad := mesh.Build([]TileVertex{
		{Position: [2]float32{0, 0}, TexCoord: [2]float32{0, 0}},
		{Position: [2]float32{1, 0}, TexCoord: [2]float32{1, 0}},
		{Position: [2]float32{1, 1}, TexCoord: [2]float32{1, 1}},
		{Position: [2]float32{0, 1}, TexCoord: [2]float32{0, 1}},
	})

	vertexBuffer, _ := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "tile_vertex_buffer",
		Contents: wgpu.ToBytes(quad.Vertices),
		Usage:    wgpu.BufferUsage_Vertex,
	})
	defer vertexBuffer.Release()

	indexBuffer, _ := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "tile_index_buffer",
		Contents: wgpu.ToBytes(quad.Indices),
		Usage:    wgpu.BufferUsage_Index,
	})
	defer indexBuffer.Release()

	pass.SetVertexBuffer(0, vertexBuffer, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(indexBuffer, wgpu.IndexFormat_Uint32, 0, wgpu.WholeSize)

	minX, minY, maxX, maxY := cam.GetTileBounds()
	w := float32(r.width)
	h := float32(r.height)

	// Tile size in NDC units
	scaleX := float32(tiles.TileSize) / w * 2
	scaleY := float32(tiles.TileSize) / h * 2

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			coord := tiles.TileCoord{X: x, Y: y, Zoom: cam.Zoom}
			screenX, screenY := cam.GetTileScreenPosition(x, y)

			ndcX := (float32(screenX)/w)*2 - 1
			ndcY := 1 - (float32(screenY)/h)*2

			tileInfo := TileInfo{
				OffsetX: ndcX,
				OffsetY: ndcY - scaleY, // draw from the tile's top-left
				ScaleX:  scaleX,
				ScaleY:  -scaleY, // flip texture vertically
			}

			r.texturesMu.RLock()
			tex, exists := r.textures[coord.String()]
			r.texturesMu.RUnlock()

			texView := r.placeholder.View
			if exists && tex != nil {
				texView = tex.View
			}

			uniformBuffer, _ := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
				Label:    "tile_uniform",
				Contents: wgpu.ToBytes([]TileInfo{tileInfo}),
				Usage:    wgpu.BufferUsage_Uniform,
			})

			bindGroup, _ := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
				Label:  "tile_bind_group",
				Layout: r.tileBGL,
				Entries: []wgpu.BindGroupEntry{
					{Binding: 0, Buffer: uniformBuffer, Size: uint64(unsafe.Sizeof(TileInfo{}))},
					{Binding: 1, Sampler: r.sampler},
					{Binding: 2, TextureView: texView},
				},
			})

			pass.SetBindGroup(0, bindGroup, nil)
			pass.DrawIndexed(uint32(len(quad.Indices)), 1, 0, 0, 0)
		}
	}
}

func (r *Renderer) renderMarkers(pass *wgpu.RenderPassEncoder, cam *camera.Camera) {
	r.markerMu.Lock()
	defer r.markerMu.Unlock()

	if r.atlasTexture == nil || r.markerMesh.indexCount == 0 {
		return
	}

	params := MarkerParams{
		View:     cam.ViewMatrix(),
		Viewport: [2]float32{float32(r.width), float32(r.height)},
		Zoom:     cam.ZoomScale(),
		Aspect:   cam.Aspect(),
	}

	uniformBuffer, _ := r.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    "marker_uniform",
		Contents: wgpu.ToBytes([]MarkerParams{params}),
		Usage:    wgpu.BufferUsage_Uniform,
	})

	bindGroup, _ := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "marker_bind_group",
		Layout: r.markerBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniformBuffer, Size: uint64(unsafe.Sizeof(MarkerParams{}))},
			{Binding: 1, Sampler: r.sampler},
			{Binding: 2, TextureView: r.atlasTexture.View},
		},
	})

	pass.SetPipeline(r.markerPipeline)
	pass.SetVertexBuffer(0, r.markerMesh.vertexBuffer, 0, wgpu.WholeSize)
	pass.SetIndexBuffer(r.markerMesh.indexBuffer, wgpu.IndexFormat_Uint32, 0, wgpu.WholeSize)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.DrawIndexed(r.markerMesh.indexCount, 1, 0, 0, 0)
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	r.width = width
	r.height = height

	if r.swapChain != nil {
		r.swapChain.Release()
	}

	var err error
	r.swapChain, err = r.device.CreateSwapChain(r.surface, &wgpu.SwapChainDescriptor{
		Usage:       wgpu.TextureUsage_RenderAttachment,
		Format:      r.swapChainFormat,
		Width:       width,
		Height:      height,
		PresentMode: wgpu.PresentMode_Fifo,
	})
	if err != nil {
		fmt.Printf("Failed to recreate swap chain: %v\n", err)
	}
}

// Release frees all GPU resources.
func (r *Renderer) Release() {
	r.texturesMu.Lock()
	for _, tex := range r.textures {
		tex.View.Release()
		tex.Texture.Release()
	}
	r.texturesMu.Unlock()

	r.markerMu.Lock()
	r.markerMesh.release()
	if r.atlasTexture != nil {
		r.atlasTexture.View.Release()
		r.atlasTexture.Texture.Release()
	}
	r.markerMu.Unlock()

	if r.placeholder != nil {
		r.placeholder.View.Release()
		r.placeholder.Texture.Release()
	}

	r.tileBGL.Release()
	r.tilePipeline.Release()
	r.markerBGL.Release()
	r.markerPipeline.Release()
	r.sampler.Release()
	if r.swapChain != nil {
		r.swapChain.Release()
	}
}
