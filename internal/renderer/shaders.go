package renderer

// TileShader renders one basemap tile as a textured unit quad placed in
// NDC by the per-tile offset/scale uniform.
const TileShader = `
struct TileInfo {
    offset: vec2<f32>,
    scale: vec2<f32>,
}

@group(0) @binding(0) var<uniform> tile: TileInfo;
@group(0) @binding(1) var tileSampler: sampler;
@group(0) @binding(2) var tileTexture: texture_2d<f32>;

struct VertexInput {
    @location(0) position: vec2<f32>,
    @location(1) texCoord: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) texCoord: vec2<f32>,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    let pos = in.position * tile.scale + tile.offset;
    out.position = vec4<f32>(pos, 0.0, 1.0);
    out.texCoord = in.texCoord;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(tileTexture, tileSampler, in.texCoord);
}
`

// MarkerShader renders the marker mesh. Positions are Web Mercator unit
// coordinates mapped to clip space by the view matrix; the per-vertex
// pixel offset then spreads the quad corners in screen space, so icons
// keep their pixel size at every zoom.
const MarkerShader = `
struct MarkerParams {
    view: mat4x4<f32>,
    viewport: vec2<f32>,
    zoom: f32,
    aspect: f32,
}

@group(0) @binding(0) var<uniform> params: MarkerParams;
@group(0) @binding(1) var atlasSampler: sampler;
@group(0) @binding(2) var atlasTexture: texture_2d<f32>;

struct VertexInput {
    @location(0) position: vec2<f32>,
    @location(1) texCoord: vec2<f32>,
    @location(2) offset: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) texCoord: vec2<f32>,
}

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    var clip = params.view * vec4<f32>(in.position, 0.0, 1.0);
    // Screen y grows downward, NDC y grows upward.
    clip.x = clip.x + in.offset.x / params.viewport.x * 2.0;
    clip.y = clip.y - in.offset.y / params.viewport.y * 2.0;
    out.position = clip;
    out.texCoord = in.texCoord;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let color = textureSample(atlasTexture, atlasSampler, in.texCoord);
    if (color.a < 0.01) {
        discard;
    }
    return color;
}
`
