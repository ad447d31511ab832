// SPDX-License-Identifier: MIT

package plan

// Encoder speed presets, fastest to slowest. Software encodes pass the
// name through to libx264 unchanged; hardware encodes translate it to the
// NVENC p1..p7 scale.
var nvencPresets = map[string]string{
	"ultrafast": "p1",
	"superfast": "p2",
	"veryfast":  "p3",
	"faster":    "p4",
	"fast":      "p5",
	"medium":    "p6",
	"slow":      "p7",
}

// nvencDefaultPreset is used when the requested preset is not in the table.
const nvencDefaultPreset = "p4"

// translatePreset maps a preset name to the encoder-native form.
func translatePreset(name string, hardware bool) string {
	if !hardware {
		return name
	}
	if p, ok := nvencPresets[name]; ok {
		return p
	}
	return nvencDefaultPreset
}
