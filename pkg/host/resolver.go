package host

import (
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"esrt/pkg/ast"
	"esrt/pkg/bytecode"
	"esrt/pkg/compiler"
	"esrt/pkg/modules"
)

// ProgramBuilder turns a module's already-read source bytes into an
// *ast.Program. This package has no lexer/parser of its own (see the
// Non-goals), so an embedder supplies one; FileSystemResolver only owns
// path resolution and hands the bytes onward.
type ProgramBuilder func(specifier string, source []byte) (*ast.Program, error)

// FileSystemResolver implements modules.Resolver against an fs.FS,
// grounded on the teacher's own pkg/modules FileSystemResolver
// (extension probing, index-file fallback, baseDir-relative lookup) but
// narrowed to one fs.FS and one ProgramBuilder instead of a prioritized
// resolver chain, since this engine has exactly one source format.
type FileSystemResolver struct {
	FS         fs.FS
	Extensions []string // tried in order when specifier has no extension
	Build      ProgramBuilder
}

// NewFileSystemResolver returns a resolver rooted at fsys, trying
// specifier, then specifier+each of extensions (".js", then ".mjs", by
// default).
func NewFileSystemResolver(fsys fs.FS, build ProgramBuilder) *FileSystemResolver {
	return &FileSystemResolver{FS: fsys, Extensions: []string{".js", ".mjs"}, Build: build}
}

// Resolve implements modules.Resolver: it locates specifier's source
// relative to referrer (nil for the program's own entry point), reads
// it, compiles it, and returns the resulting FunctionProto.
func (r *FileSystemResolver) Resolve(specifier string, referrer *modules.Module) (*bytecode.FunctionProto, error) {
	target := specifier
	if referrer != nil && (strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")) {
		target = path.Join(path.Dir(referrer.Specifier), specifier)
	}
	target = strings.TrimPrefix(filepath.ToSlash(target), "/")

	data, resolvedPath, err := r.readWithExtensions(target)
	if err != nil {
		return nil, fmt.Errorf("resolving %q: %w", specifier, err)
	}

	prog, err := r.Build(resolvedPath, data)
	if err != nil {
		return nil, fmt.Errorf("building %q: %w", resolvedPath, err)
	}
	proto, err := compiler.Compile(prog)
	if err != nil {
		return nil, fmt.Errorf("compiling %q: %w", resolvedPath, err)
	}
	return proto, nil
}

func (r *FileSystemResolver) readWithExtensions(target string) ([]byte, string, error) {
	if data, err := fs.ReadFile(r.FS, target); err == nil {
		return data, target, nil
	}
	for _, ext := range r.Extensions {
		candidate := target + ext
		if data, err := fs.ReadFile(r.FS, candidate); err == nil {
			return data, candidate, nil
		}
	}
	return nil, "", fmt.Errorf("module %q not found (tried extensions %v)", target, r.Extensions)
}
