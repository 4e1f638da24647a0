package linker

import "errors"

// Integrity errors: the artifacts disagree with each other. They abort the
// session.
var (
	// ErrNoDeclaration reports a signature its owner could not materialize.
	ErrNoDeclaration = errors.New("no declaration for signature")
	// ErrMissingReference reports an inline function absent from the library cache.
	ErrMissingReference = errors.New("no inline function reference")
	// ErrMissingClassFields reports a class absent from the library cache.
	ErrMissingClassFields = errors.New("no class fields")
	// ErrDuplicateField reports two fields with the same name in one class.
	ErrDuplicateField = errors.New("two fields with same name")
	// ErrUnknownSignature reports a public signature no module claims.
	ErrUnknownSignature = errors.New("no module for signature")
	// ErrDuplicateOwner reports a public signature claimed by two modules.
	ErrDuplicateOwner = errors.New("signature claimed by two modules")
	// ErrUnboundSymbols reports symbols still unbound after post-processing.
	ErrUnboundSymbols = errors.New("unbound symbols")
	// ErrParameterMismatch reports recorded parameters that do not line up
	// with the live declaration.
	ErrParameterMismatch = errors.New("recorded parameters do not match declaration")
)

// Precondition errors: the input shape is unsupported.
var (
	// ErrLocalDeclaration reports a request for a local function or class.
	ErrLocalDeclaration = errors.New("local declarations are not supported")
	// ErrNotForwardClass reports a non-class request to the forward module.
	ErrNotForwardClass = errors.New("only classes can be forward declarations")
	// ErrNoLibrary reports a module header requested without its library.
	ErrNoLibrary = errors.New("expecting library for module")
	// ErrNotCached reports a module that is not served from a library cache.
	ErrNotCached = errors.New("module is not a cached library")
)
