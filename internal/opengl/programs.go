package opengl

import (
	"fmt"
	"strings"

	gl "github.com/go-gl/gl/v4.1-core/gl"

	"vsm-engine/gfx"
)

// maxTaps bounds the weights uniform array.
const maxTaps = 9

// bandVertSrc draws a full-width quad over rows [band.x, band.y] with a
// triangle strip via gl_VertexID (no VBO needed). fragUV spans [0, 1] over
// the quad.
const bandVertSrc = `
#version 410 core
uniform vec2 band;
out vec2 fragUV;
void main() {
    vec2 corner = vec2(float(gl_VertexID & 1), float(gl_VertexID >> 1));
    float y = mix(band.x, band.y, corner.y);
    gl_Position = vec4(corner.x * 2.0 - 1.0, y * 2.0 - 1.0, 0.0, 1.0);
    fragUV = corner;
}
` + "\x00"

// blurVerticalFragSrc filters all four channels along Y.
const blurVerticalFragSrc = `
#version 410 core
in  vec2 fragUV;
layout(location = 0) out vec4 outColor;

uniform sampler2D source;
uniform vec2      texelSize;
uniform float     weights[9];
uniform int       taps;

void main() {
    vec4 acc = vec4(0.0);
    int mid = taps / 2;
    for (int i = 0; i < taps; i++) {
        acc += weights[i] * texture(source, fragUV + vec2(0.0, float(i - mid) * texelSize.y));
    }
    outColor = acc;
}
` + "\x00"

// blurMomentsFragSrc filters along X and normalizes the moments by the
// filtered coverage in the third channel.
const blurMomentsFragSrc = `
#version 410 core
in  vec2 fragUV;
layout(location = 0) out vec4 outMean;
layout(location = 1) out vec4 outSquaredMean;

uniform sampler2D source;
uniform vec2      texelSize;
uniform float     weights[9];
uniform int       taps;
uniform vec4      color;
uniform int       planes;

void main() {
    vec3 acc = vec3(0.0);
    int mid = taps / 2;
    for (int i = 0; i < taps; i++) {
        acc += weights[i] * texture(source, fragUV + vec2(float(i - mid) * texelSize.x, 0.0)).rgb;
    }
    vec2 moments = color.rg;
    if (acc.b > 0.0) {
        moments = acc.rg / acc.b;
    }
    if (planes == 1) {
        outMean = vec4(moments, 0.0, 0.0);
    } else {
        outMean = vec4(moments.r, 0.0, 0.0, 0.0);
        outSquaredMean = vec4(moments.g, 0.0, 0.0, 0.0);
    }
}
` + "\x00"

const fillFragSrc = `
#version 410 core
layout(location = 0) out vec4 outColor0;
layout(location = 1) out vec4 outColor1;
uniform vec4 color;
void main() {
    outColor0 = color;
    outColor1 = color;
}
` + "\x00"

// blitProgram is a compiled pass program and its uniform locations.
type blitProgram struct {
	id        uint32
	bandLoc   int32
	texelLoc  int32
	weightLoc int32
	tapsLoc   int32
	colorLoc  int32
	planesLoc int32
}

func newBlitProgram(fragSrc string) (*blitProgram, error) {
	id, err := newProgram(bandVertSrc, fragSrc)
	if err != nil {
		return nil, err
	}
	p := &blitProgram{
		id:        id,
		bandLoc:   gl.GetUniformLocation(id, gl.Str("band\x00")),
		texelLoc:  gl.GetUniformLocation(id, gl.Str("texelSize\x00")),
		weightLoc: gl.GetUniformLocation(id, gl.Str("weights\x00")),
		tapsLoc:   gl.GetUniformLocation(id, gl.Str("taps\x00")),
		colorLoc:  gl.GetUniformLocation(id, gl.Str("color\x00")),
		planesLoc: gl.GetUniformLocation(id, gl.Str("planes\x00")),
	}
	gl.UseProgram(id)
	gl.Uniform1i(gl.GetUniformLocation(id, gl.Str("source\x00")), 0)
	return p, nil
}

// compileBlitPrograms builds one program per gfx.Program.
func compileBlitPrograms() (map[gfx.Program]*blitProgram, error) {
	sources := map[gfx.Program]string{
		gfx.ProgramBlurVertical: blurVerticalFragSrc,
		gfx.ProgramBlurMoments:  blurMomentsFragSrc,
		gfx.ProgramFill:         fillFragSrc,
	}
	progs := make(map[gfx.Program]*blitProgram, len(sources))
	for prog, src := range sources {
		p, err := newBlitProgram(src)
		if err != nil {
			for _, done := range progs {
				gl.DeleteProgram(done.id)
			}
			return nil, fmt.Errorf("%s shader: %w", prog, err)
		}
		progs[prog] = p
	}
	return progs, nil
}

func newProgram(vertSrc, fragSrc string) (uint32, error) {
	vert, err := compileShader(vertSrc, gl.VERTEX_SHADER)
	if err != nil {
		return 0, fmt.Errorf("vertex: %w", err)
	}
	frag, err := compileShader(fragSrc, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vert)
		return 0, fmt.Errorf("fragment: %w", err)
	}

	prog := gl.CreateProgram()
	gl.AttachShader(prog, vert)
	gl.AttachShader(prog, frag)
	gl.LinkProgram(prog)
	gl.DeleteShader(vert)
	gl.DeleteShader(frag)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(prog, logLen, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("link failed: %v", log)
	}
	return prog, nil
}

func compileShader(src string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csrc, free := gl.Strs(src)
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %v", log)
	}
	return shader, nil
}
