package capstonesys

import (
	"context"
	"fmt"
	"path/filepath"
)

// runCommonBuild executes the configure/build/find pattern for a bundled
// acquirer and turns the located artifact into an Acquisition.
//
// # Process Flow
//
//  1. Make sure the bundled sources exist (unpacking SourceArchive if needed)
//  2. Call ConfigureFunc to prepare the build
//  3. Call BuildFunc to compile the library
//  4. Call FindFunc to locate the static library
//  5. Verify the artifact extension matches the static link mode
//
// If any step fails, processing stops and the error is returned.
// The bundled include directory is always contributed as a header search path.
func runCommonBuild(ctx context.Context, config *BuildConfig, result *BuildResult, steps CommonBuildSteps) (*Acquisition, error) {
	sourceDir, err := ensureSources(config)
	if err != nil {
		return nil, err
	}

	if err := steps.ConfigureFunc(ctx, config, sourceDir, result); err != nil {
		return nil, err
	}

	if err := steps.BuildFunc(ctx, config, sourceDir, result); err != nil {
		return nil, err
	}

	artifact, err := steps.FindFunc(config, sourceDir)
	if err != nil {
		return nil, err
	}

	if err := verifyArtifact(config, Static, artifact); err != nil {
		return nil, err
	}

	return &Acquisition{
		LinkType:    Static,
		IncludeDirs: bundledIncludeDirs(sourceDir),
		SearchDirs:  []string{filepath.Dir(artifact)},
		Artifact:    artifact,
	}, nil
}

// verifyArtifact checks that artifact exists and carries the extension
// expected for the link type on the configured target.
func verifyArtifact(config *BuildConfig, linkType LinkType, artifact string) error {
	if !fileExists(artifact) {
		return discoveryError("find library", fmt.Errorf("%w: %s", ErrLibraryNotFound, artifact))
	}
	if ext := linkType.LibExtension(config.Target); !MatchesExtension(artifact, ext) {
		return discoveryError("find library",
			fmt.Errorf("%s does not have the .%s extension required for %s linking on %s", artifact, ext, linkType, config.Target))
	}
	return nil
}

// capstone 3 keeps capstone.h in include/, later releases in include/capstone/
func bundledIncludeDirs(sourceDir string) []string {
	include := filepath.Join(sourceDir, "include")
	return []string{include, filepath.Join(include, "capstone")}
}

// BundledIncludeDirs returns the header search paths of the bundled sources,
// unpacking SourceArchive first when the source tree is missing.
func BundledIncludeDirs(config *BuildConfig) ([]string, error) {
	sourceDir, err := ensureSources(config)
	if err != nil {
		return nil, err
	}
	return bundledIncludeDirs(sourceDir), nil
}
