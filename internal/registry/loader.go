package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// DefError is a device definition loading error.
type DefError struct {
	Code    string
	Device  string
	Message string
}

func (e *DefError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("%s: device %s: %s", e.Code, e.Device, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Definition loader error codes.
const (
	ErrCodeNotFound    = "D001" // definitions directory not found
	ErrCodeNoFiles     = "D002" // no CUE files in directory
	ErrCodeLoadFailed  = "D003" // CUE load failed
	ErrCodeBuildFailed = "D004" // CUE build failed
	ErrCodeBadDevice   = "D005" // device definition invalid
)

// Load reads device definitions from the CUE files in dir. Definitions live
// under the top-level "device" struct, keyed by a label that doubles as the
// device name when the definition does not set one:
//
//	device: waveform: {
//		name:      "Waveform"
//		kind:      "control"
//		table:     "waveform"
//		key_field: "shotnum"
//		configs: [{name: "config01", commands: [...]}]
//		fields: [{name: "frequency", type: "float64", pattern: #freqPattern}]
//	}
//
// All definitions are collected before returning; errs holds every invalid
// definition rather than stopping at the first.
func Load(dir string) (defs []DeviceDef, errs []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&DefError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definitions directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&DefError{Code: ErrCodeNotFound, Message: err.Error()}}
	}
	if !info.IsDir() {
		return nil, []error{&DefError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := findCUEFiles(dir)
	if err != nil {
		return nil, []error{&DefError{Code: ErrCodeLoadFailed, Message: err.Error()}}
	}
	if len(files) == 0 {
		return nil, []error{&DefError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&DefError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&DefError{Code: ErrCodeLoadFailed, Message: inst.Err.Error()}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&DefError{Code: ErrCodeBuildFailed, Message: err.Error()}}
	}

	devices := value.LookupPath(cue.ParsePath("device"))
	if !devices.Exists() {
		return nil, []error{&DefError{Code: ErrCodeBadDevice, Message: "no top-level device struct"}}
	}

	iter, err := devices.Fields()
	if err != nil {
		return nil, []error{&DefError{Code: ErrCodeBadDevice, Message: err.Error()}}
	}
	for iter.Next() {
		label := iter.Label()
		var def DeviceDef
		if err := iter.Value().Decode(&def); err != nil {
			errs = append(errs, &DefError{Code: ErrCodeBadDevice, Device: label, Message: err.Error()})
			continue
		}
		if def.Name == "" {
			def.Name = label
		}
		def.Normalize()
		if err := def.Validate(); err != nil {
			errs = append(errs, &DefError{Code: ErrCodeBadDevice, Device: label, Message: err.Error()})
			continue
		}
		defs = append(defs, def)
	}

	if len(defs) == 0 && len(errs) == 0 {
		errs = append(errs, &DefError{Code: ErrCodeBadDevice, Message: "no device definitions found"})
	}
	return defs, errs
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
