package capstonesys

import (
	"fmt"
	"strings"
)

// apiPattern matches the cs_ prefixed public API (cs_open, cs_insn, ...).
const apiPattern = "cs_.*"

// regEnumPattern matches register enums; some registers have aliases, so
// their members are emitted as plain constants rather than a typed enum.
const regEnumPattern = "[^_]+_reg$"

// AllowList restricts which declarations the translator extracts.
type AllowList struct {
	Functions []string // Patterns for function names
	Types     []string // Patterns for type names
}

// BuildAllowList returns the allow-list for the given architectures: the
// cs_ prefix for functions and types, plus one type pattern per architecture
// matching its identifier as a delimited token (arm_reg, cs_arm64, x86_op_mem).
//
// For N architectures the list holds exactly N+2 patterns.
func BuildAllowList(archs []ArchDescriptor) AllowList {
	list := AllowList{
		Functions: []string{apiPattern},
		Types:     []string{apiPattern},
	}
	for _, arch := range archs {
		list.Types = append(list.Types, archTypePattern(arch))
	}
	return list
}

func archTypePattern(arch ArchDescriptor) string {
	return fmt.Sprintf(".*(^|_)%s(_|$).*", arch.CSName)
}

// ConstantPatterns returns the patterns selecting enum members and macros:
// the CS_ prefix (CS_ARCH_ARM, CS_MODE_64, CS_OPT_DETAIL) plus one upper-case
// prefix per architecture (ARM_REG_R0, X86_INS_MOV).
func ConstantPatterns(archs []ArchDescriptor) []string {
	patterns := []string{"^CS_"}
	for _, arch := range archs {
		patterns = append(patterns, "^"+strings.ToUpper(arch.CSName)+"_")
	}
	return patterns
}

// Len returns the total number of patterns.
func (a AllowList) Len() int {
	return len(a.Functions) + len(a.Types)
}

// AllowsFunction reports whether a function name passes the allow-list.
func (a AllowList) AllowsFunction(name string) bool {
	return MatchesPattern(name, a.Functions...)
}

// AllowsType reports whether a type name passes the allow-list.
func (a AllowList) AllowsType(name string) bool {
	return MatchesPattern(name, a.Types...)
}
