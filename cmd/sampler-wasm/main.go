//go:build js && wasm

package main

import (
	"os"
	"syscall/js"
	"unsafe"

	"github.com/cwbudde/algo-sampler/mixer"
	"github.com/cwbudde/algo-sampler/preset"
	"github.com/cwbudde/algo-sampler/sampler"
)

const maxBlockFrames = 128

var (
	globalSampler *sampler.Sampler
	globalMixer   *mixer.Mixer
	instrument    *sampler.MultiInstrument
	outputBuffer  []float32
)

func main() {
	// Keep program running
	c := make(chan struct{})

	js.Global().Set("wasmInit", js.FuncOf(wasmInit))
	js.Global().Set("wasmLoadBank", js.FuncOf(wasmLoadBank))
	js.Global().Set("wasmNoteOn", js.FuncOf(wasmNoteOn))
	js.Global().Set("wasmNoteOff", js.FuncOf(wasmNoteOff))
	js.Global().Set("wasmSetSustain", js.FuncOf(wasmSetSustain))
	js.Global().Set("wasmSetControl", js.FuncOf(wasmSetControl))
	js.Global().Set("wasmProcessBlock", js.FuncOf(wasmProcessBlock))
	js.Global().Set("wasmGetMemoryBuffer", js.FuncOf(wasmGetMemoryBuffer))

	println("WASM sampler module loaded")
	<-c
}

func wasmInit(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	params := sampler.NewDefaultParams()
	params.RenderRate = args[0].Int()
	params.MaxBlock = maxBlockFrames

	s, err := sampler.NewSampler(params)
	if err != nil {
		println("Sampler init failed:", err.Error())
		return nil
	}
	globalSampler = s
	globalMixer = mixer.NewMixer(params.RenderRate, true)
	globalMixer.Add(s)
	instrument = preset.ToneInstrument(params.RenderRate)
	outputBuffer = make([]float32, maxBlockFrames*2)

	println("Sampler initialized at", params.RenderRate, "Hz")
	return nil
}

// wasmLoadBank takes a bank JSON string and a map of file name to WAV
// ArrayBuffer, stages them in the in-memory filesystem and loads the bank.
func wasmLoadBank(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalSampler == nil {
		return false
	}
	dir := "/tmp/bank"
	if err := os.MkdirAll(dir, 0o755); err != nil {
		println("Failed to create bank dir:", err.Error())
		return false
	}
	files := args[1]
	keys := js.Global().Get("Object").Call("keys", files)
	for i := 0; i < keys.Length(); i++ {
		name := keys.Index(i).String()
		buf := js.Global().Get("Uint8Array").New(files.Get(name))
		data := make([]byte, buf.Get("byteLength").Int())
		js.CopyBytesToGo(data, buf)
		if err := os.WriteFile(dir+"/"+name, data, 0o644); err != nil {
			println("Failed to write", name, err.Error())
			return false
		}
	}
	bankPath := dir + "/bank.json"
	if err := os.WriteFile(bankPath, []byte(args[0].String()), 0o644); err != nil {
		println("Failed to write bank:", err.Error())
		return false
	}
	bank, err := preset.LoadJSON(bankPath)
	if err != nil {
		println("Failed to load bank:", err.Error())
		return false
	}
	mi, err := bank.Instrument("")
	if err != nil {
		println("Bank has no instrument:", err.Error())
		return false
	}

	// Playing voices hold their own zone references.
	instrument = mi
	globalSampler.ReleaseAllNotesGlobal()
	println("Bank loaded:", len(mi.Instruments), "zones")
	return true
}

func wasmNoteOn(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 || globalSampler == nil {
		return nil
	}
	ch := 0
	if len(args) > 2 {
		ch = args[2].Int()
	}
	globalSampler.PlayNote(float32(args[0].Float()), float32(args[1].Float()), instrument, ch)
	return nil
}

func wasmNoteOff(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSampler == nil {
		return nil
	}
	ch := 0
	if len(args) > 1 {
		ch = args[1].Int()
	}
	globalSampler.ReleaseNote(float32(args[0].Float()), ch)
	return nil
}

func wasmSetSustain(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalSampler == nil {
		return nil
	}
	var v float32
	if args[0].Bool() {
		v = 1
	}
	globalSampler.SetSustain(v, 0)
	return nil
}

// wasmSetControl(name, value, channel) forwards a named controller.
func wasmSetControl(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 || globalSampler == nil {
		return nil
	}
	v := float32(args[1].Float())
	ch := args[2].Int()
	switch args[0].String() {
	case "pitchbend":
		globalSampler.SetPitchBend(v, ch)
	case "modulation":
		globalSampler.SetModulation(v, ch)
	case "expression":
		globalSampler.SetExpression(v, ch)
	case "level":
		globalSampler.SetLevel(v, ch)
	case "balance":
		globalSampler.SetBalance(v, ch)
	case "reverb":
		globalSampler.SetReverb(v, ch)
	case "chorus":
		globalSampler.SetChorus(v, ch)
	case "gain":
		globalMixer.SetGain(v)
	}
	return nil
}

func wasmProcessBlock(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || globalMixer == nil {
		return 0
	}
	numFrames := args[0].Int()
	if numFrames > maxBlockFrames {
		numFrames = maxBlockFrames
	}
	buf := outputBuffer[:2*numFrames]
	for i := range buf {
		buf[i] = 0
	}
	_ = globalMixer.Render(mixer.Interleaved(buf))

	// Return pointer to buffer in WASM linear memory
	ptr := &outputBuffer[0]
	return js.ValueOf(uintptr(unsafe.Pointer(ptr)))
}

func wasmGetMemoryBuffer(this js.Value, args []js.Value) interface{} {
	return js.Global().Get("Go").Get("_inst").Get("exports").Get("mem").Get("buffer")
}
