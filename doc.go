// Package capstonesys builds and links the Capstone disassembly engine for
// the Go bindings and generates those bindings from capstone.h.
//
// It is the build step of the binding package: it does no disassembly of
// its own. One run selects a link mode, locates or builds libcapstone,
// finds the public header, generates or copies the Go declarations and
// publishes the link directives as a cgo flags file.
//
// # Strategies
//
// The library is acquired in one of four ways, chosen from the feature
// flags and the target triple:
//
//	Feature   Target        Strategy  Link mode
//	system    any           System    dylib  (pkg-config)
//	cmake     any           CMake     static
//	compile   windows only  Compile   static (cc/cl + ar/lib)
//	(none)    windows       CMake     static
//	(none)    other         Make      static (make, gmake on BSD)
//
// Contradictory flags (system with cmake or compile, cmake with compile)
// are rejected rather than resolved by precedence.
//
// # Basic Usage
//
//	config, err := capstonesys.LoadConfig("", os.Getenv)
//	if err != nil {
//	    return err
//	}
//
//	result, err := capstonesys.NewOrchestrator(config).Run(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.BindingsPath)
//
// # Bindings
//
// With the generate feature the header is passed to an external
// translator (c-for-go by default) restricted by an allow-list of the cs_
// API plus one pattern per architecture. Otherwise the checked-in
// pre_generated/capstone.go is copied unchanged. UPDATE_CAPSTONE_BINDINGS
// writes freshly generated bindings back to pre_generated/ and is rejected
// when generate is off.
//
// # Errors
//
// Every failure is an *Error of kind configuration, discovery or tool and
// stops the build. Use IsKind or errors.Is with the sentinel errors to
// tell them apart.
package capstonesys
