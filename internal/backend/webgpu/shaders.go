// Package webgpu WGSL compute shaders for the primitive operations.
package webgpu

// workgroupSize is the default number of threads per workgroup.
const workgroupSize = 256

// gemmShader computes result = alpha*op(A)@op(B) + beta*result for row-major
// matrices, with the transpose of each operand selected by a params flag.
// op(A) is [M, K], op(B) is [K, N], result is [M, N].
const gemmShader = `
@group(0) @binding(0) var<storage, read> a: array<f32>;
@group(0) @binding(1) var<storage, read> b: array<f32>;
@group(0) @binding(2) var<storage, read_write> result: array<f32>;

struct Params {
    m: u32,
    k: u32,
    n: u32,
    trans_a: u32,
    trans_b: u32,
    alpha: f32,
    beta: f32,
}
@group(0) @binding(3) var<uniform> params: Params;

@compute @workgroup_size(16, 16)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let row = global_id.y;
    let col = global_id.x;

    if (row >= params.m || col >= params.n) {
        return;
    }

    var sum: f32 = 0.0;
    for (var p: u32 = 0u; p < params.k; p = p + 1u) {
        var av: f32;
        if (params.trans_a != 0u) {
            av = a[p * params.m + row];
        } else {
            av = a[row * params.k + p];
        }
        var bv: f32;
        if (params.trans_b != 0u) {
            bv = b[col * params.k + p];
        } else {
            bv = b[p * params.n + col];
        }
        sum = sum + av * bv;
    }

    let idx = row * params.n + col;
    if (params.beta == 0.0) {
        result[idx] = params.alpha * sum;
    } else {
        result[idx] = params.alpha * sum + params.beta * result[idx];
    }
}
`

// channelSoftmaxShader normalizes across the channel dimension of an
// (N, C, spatial) tensor: one thread per (sample, spatial position) pair,
// walking the C values spaced spatial elements apart.
const channelSoftmaxShader = `
@group(0) @binding(0) var<storage, read> input: array<f32>;
@group(0) @binding(1) var<storage, read_write> result: array<f32>;

struct Params {
    batch: u32,
    channels: u32,
    spatial: u32,
}
@group(0) @binding(2) var<uniform> params: Params;

@compute @workgroup_size(256)
fn main(@builtin(global_invocation_id) global_id: vec3<u32>) {
    let id = global_id.x;
    if (id >= params.batch * params.spatial) {
        return;
    }

    let s = id / params.spatial;
    let xy = id % params.spatial;
    let offset = s * params.channels * params.spatial + xy;
    let stride = params.spatial;

    // Find max for numerical stability
    var max_val: f32 = input[offset];
    for (var c: u32 = 1u; c < params.channels; c = c + 1u) {
        max_val = max(max_val, input[offset + c * stride]);
    }

    // Compute exp(x - max) and sum
    var sum: f32 = 0.0;
    for (var c: u32 = 0u; c < params.channels; c = c + 1u) {
        let exp_val = exp(input[offset + c * stride] - max_val);
        result[offset + c * stride] = exp_val;
        sum = sum + exp_val;
    }

    // Normalize
    for (var c: u32 = 0u; c < params.channels; c = c + 1u) {
        result[offset + c * stride] = result[offset + c * stride] / sum;
    }
}
`
