//go:build mage

package main

import (
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const cliPackage = "./cmd/capstone-sys"

var Default = Build

// Build runs the full capstone-sys build for the host target.
func Build() error {
	return sh.RunV("go", "run", cliPackage, "build")
}

// Plan prints the resolved build plan.
func Plan() error {
	return sh.RunV("go", "run", cliPackage, "plan")
}

// Bindings regenerates the bindings from the bundled capstone.h.
func Bindings() error {
	return sh.RunV("go", "run", cliPackage, "bindings")
}

// UpdateBindings regenerates the bindings and overwrites pre_generated/.
func UpdateBindings() error {
	return sh.RunWithV(map[string]string{"UPDATE_CAPSTONE_BINDINGS": "1"},
		"go", "run", cliPackage, "bindings", "--update")
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Install builds the capstone-sys binary into GOBIN.
func Install() error {
	mg.Deps(Test)
	return sh.RunV("go", "install", cliPackage)
}

// Clean removes build outputs below out/.
func Clean() error {
	return os.RemoveAll("out")
}
