package manifest

import "fmt"

// Error annotates a failure with the manifest it occurred in and, when the
// manifest was reached through an `upload` reference, the referring parent.
type Error struct {
	Path   string
	Parent string
	Err    error
}

func (e *Error) Error() string {
	if e.Parent != "" {
		return fmt.Sprintf("manifest %s (referenced by %s): %s", e.Path, e.Parent, e.Err)
	}
	return fmt.Sprintf("manifest %s: %s", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// FormatError means a manifest file is not a plain JSON object.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "invalid manifest: " + e.Reason
}

// FieldError means a manifest field has the wrong shape or an unlisted value.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

// TemplateNotConfiguredError means a lesson declared `extends` before any
// manifest on its branch declared a template root.
type TemplateNotConfiguredError struct {
	Lesson string
}

func (e *TemplateNotConfiguredError) Error() string {
	return fmt.Sprintf("lesson %q declares 'extends' but no 'templates' root is configured on this branch", e.Lesson)
}

// ProjectResolutionError means neither the existing lesson record nor a
// fresh create yielded a backing project.
type ProjectResolutionError struct {
	Lesson string
}

func (e *ProjectResolutionError) Error() string {
	return fmt.Sprintf("lesson %q: could not resolve or create a backing project", e.Lesson)
}

// LessonResolutionError means the lesson upsert did not return an ID.
type LessonResolutionError struct {
	Lesson string
}

func (e *LessonResolutionError) Error() string {
	return fmt.Sprintf("lesson %q: upsert returned no lesson ID", e.Lesson)
}

// TokenError means the platform did not issue a container access token.
type TokenError struct {
	Project string
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("project %q: no container access token returned", e.Project)
}
