package picodump

import "strings"

// importantModules is the allow-list of DLLs known to host credential
// material. Matching is done on the base filename, case-insensitively.
var importantModules = []string{
	"lsasrv.dll", "msv1_0.dll", "tspkg.dll", "wdigest.dll", "kerberos.dll",
	"livessp.dll", "dpapisrv.dll", "kdcsvc.dll", "cryptdll.dll", "lsadb.dll",
	"samsrv.dll", "rsaenh.dll", "ncrypt.dll", "ncryptprov.dll", "eventlog.dll",
	"wevtsvc.dll", "termsrv.dll", "cloudap.dll",
}

// baseName returns the final path element of a Windows module path.
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `\/`); i >= 0 {
		return path[i+1:]
	}
	return path
}

func isAllowListedModule(path string, allowList []string) bool {
	name := baseName(path)
	for _, allowed := range allowList {
		if strings.EqualFold(name, allowed) {
			return true
		}
	}
	return false
}
