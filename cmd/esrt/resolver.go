package main

import (
	"fmt"

	"esrt/pkg/bytecode"
	"esrt/pkg/compiler"
	"esrt/pkg/host"
	"esrt/pkg/modules"
)

// demoResolver implements modules.Resolver over the same built-in demo
// table run/disasm already use, so `esrt run --mode module <name>`
// exercises the real module loader without needing a filesystem or a
// parser to read one.
type demoResolver struct{}

func newDemoResolver() *demoResolver { return &demoResolver{} }

func (demoResolver) Resolve(specifier string, referrer *modules.Module) (*bytecode.FunctionProto, error) {
	build, ok := demos[specifier]
	if !ok {
		return nil, fmt.Errorf("no demo module named %q (available: %v)", specifier, demoNames())
	}
	proto, err := compiler.Compile(build())
	if err != nil {
		return nil, fmt.Errorf("compiling demo module %q: %w", specifier, err)
	}
	return proto, nil
}

// newLoaderFor installs resolver on rt and hands back the resulting
// loader, so callers can run a module demo without reaching into rt's
// fields directly.
func newLoaderFor(rt *host.Runtime, resolver modules.Resolver) *modules.Loader {
	rt.SetModuleResolver(resolver)
	return rt.Loader
}
