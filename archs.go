package capstonesys

// ArchDescriptor describes one architecture backend of the capstone library.
type ArchDescriptor struct {
	Name    string   // Directory name under arch/ in the capstone sources
	CSName  string   // Token used in capstone identifiers (arm64_reg, x86_insn, ...)
	Header  string   // Public header under include/capstone/
	Define  string   // Preprocessor switch enabling the backend
	Sources []string // Translation units under arch/<Name>/
}

// ArchIncludes lists the architecture backends the bindings cover.
var ArchIncludes = []ArchDescriptor{
	{
		Name:   "ARM",
		CSName: "arm",
		Header: "arm.h",
		Define: "CAPSTONE_HAS_ARM",
		Sources: []string{
			"ARMDisassembler.c",
			"ARMInstPrinter.c",
			"ARMMapping.c",
			"ARMModule.c",
		},
	},
	{
		Name:   "AArch64",
		CSName: "arm64",
		Header: "arm64.h",
		Define: "CAPSTONE_HAS_ARM64",
		Sources: []string{
			"AArch64BaseInfo.c",
			"AArch64Disassembler.c",
			"AArch64InstPrinter.c",
			"AArch64Mapping.c",
			"AArch64Module.c",
		},
	},
	{
		Name:   "Mips",
		CSName: "mips",
		Header: "mips.h",
		Define: "CAPSTONE_HAS_MIPS",
		Sources: []string{
			"MipsDisassembler.c",
			"MipsInstPrinter.c",
			"MipsMapping.c",
			"MipsModule.c",
		},
	},
	{
		Name:   "PowerPC",
		CSName: "ppc",
		Header: "ppc.h",
		Define: "CAPSTONE_HAS_POWERPC",
		Sources: []string{
			"PPCDisassembler.c",
			"PPCInstPrinter.c",
			"PPCMapping.c",
			"PPCModule.c",
		},
	},
	{
		Name:   "Sparc",
		CSName: "sparc",
		Header: "sparc.h",
		Define: "CAPSTONE_HAS_SPARC",
		Sources: []string{
			"SparcDisassembler.c",
			"SparcInstPrinter.c",
			"SparcMapping.c",
			"SparcModule.c",
		},
	},
	{
		Name:   "SystemZ",
		CSName: "sysz",
		Header: "systemz.h",
		Define: "CAPSTONE_HAS_SYSZ",
		Sources: []string{
			"SystemZDisassembler.c",
			"SystemZInstPrinter.c",
			"SystemZMapping.c",
			"SystemZMCTargetDesc.c",
			"SystemZModule.c",
		},
	},
	{
		Name:   "X86",
		CSName: "x86",
		Header: "x86.h",
		Define: "CAPSTONE_HAS_X86",
		Sources: []string{
			"X86ATTInstPrinter.c",
			"X86Disassembler.c",
			"X86DisassemblerDecoder.c",
			"X86IntelInstPrinter.c",
			"X86Mapping.c",
			"X86Module.c",
		},
	},
	{
		Name:   "XCore",
		CSName: "xcore",
		Header: "xcore.h",
		Define: "CAPSTONE_HAS_XCORE",
		Sources: []string{
			"XCoreDisassembler.c",
			"XCoreInstPrinter.c",
			"XCoreMapping.c",
			"XCoreModule.c",
		},
	},
}

// coreSources are the architecture independent translation units.
var coreSources = []string{
	"cs.c",
	"MCInst.c",
	"MCInstrDesc.c",
	"MCRegisterInfo.c",
	"SStream.c",
	"utils.c",
}

// TranslationUnits returns every source file, relative to the capstone
// source root, needed to build the library with the given backends.
func TranslationUnits(archs []ArchDescriptor) []string {
	units := append([]string{}, coreSources...)
	for _, arch := range archs {
		for _, src := range arch.Sources {
			units = append(units, "arch/"+arch.Name+"/"+src)
		}
	}
	return units
}

// archDefines returns the preprocessor switches for the given backends.
func archDefines(archs []ArchDescriptor) []string {
	defines := []string{"CAPSTONE_USE_SYS_DYN_MEM"}
	for _, arch := range archs {
		defines = append(defines, arch.Define)
	}
	return defines
}
