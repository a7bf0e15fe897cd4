package preview

import (
	"log"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
)

// ShaderManager handles OpenGL shader program compilation, linking, and uniform
// management.
type ShaderManager struct {
	program  uint32 // program ID
	uTexture int32  // uniform location for the surface sampler
}

// Vertex shader. Passes the quad corner through and forwards its texture
// coordinate.
const vertexShaderSource = `
#version 330 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aUV;

out vec2 vUV;

void main() {
    gl_Position = vec4(aPos, 0.0, 1.0);
    vUV = aUV;
}
` + "\x00"

// Fragment shader. Samples the surface; its alpha is blended over the clear
// colour.
const fragmentShaderSource = `
#version 330 core
in vec2 vUV;
out vec4 FragColor;

uniform sampler2D uTexture;

void main() {
    FragColor = texture(uTexture, vUV);
}
` + "\x00"

// NewShaderManager creates and initializes a new shader manager with compiled
// and linked shaders.
func NewShaderManager() *ShaderManager {
	sm := &ShaderManager{}

	vertexShader := sm.compileShader(vertexShaderSource, gl.VERTEX_SHADER)
	defer gl.DeleteShader(vertexShader)

	fragmentShader := sm.compileShader(fragmentShaderSource, gl.FRAGMENT_SHADER)
	defer gl.DeleteShader(fragmentShader)

	sm.program = gl.CreateProgram()
	gl.AttachShader(sm.program, vertexShader)
	gl.AttachShader(sm.program, fragmentShader)
	gl.LinkProgram(sm.program)

	var status int32
	gl.GetProgramiv(sm.program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(sm.program, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(sm.program, logLength, nil, gl.Str(logText))
		log.Fatalf("Shader linking failed: %s", logText)
	}

	sm.uTexture = gl.GetUniformLocation(sm.program, gl.Str("uTexture\x00"))
	gl.UseProgram(sm.program) // bind the shader program
	gl.Uniform1i(sm.uTexture, 0)
	return sm
}

// Use binds the program.
func (sm *ShaderManager) Use() {
	gl.UseProgram(sm.program)
}

// compileShader compiles a single shader from source.
func (sm *ShaderManager) compileShader(source string, shaderType uint32) uint32 {
	shader := gl.CreateShader(shaderType)
	csource, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csource, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		logText := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(logText))
		log.Fatalf("Shader compilation failed: %s", logText)
	}

	return shader
}
