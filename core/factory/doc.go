// Package factory provides a small generic registry used to build pluggable
// components from configuration. A component is selected by a type string and
// configured from a map of raw settings, which factories decode into typed
// structs before constructing the implementation. The metrics sinks are the
// main consumer: the "prometheus", "influx" and "nop" sinks each register a
// factory here and config selects between them without the core packages
// importing any sink implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[io.Writer]()
//	reg.Register("file", func(conf map[string]any) (io.Writer, error) {
//	    var c struct{ Path string `json:"path"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return os.Create(c.Path)
//	})
//	w, err := reg.Create(factory.ModuleConfig{Type: "file", Conf: map[string]any{"path": "out"}})
package factory
