package enums

import "strings"

// typeSuffix closes every EnumType reference of an IlisMeta07 transfer.
const typeSuffix = ".TYPE"

// TypePath strips one trailing ".TYPE" from an EnumType reference.
//
//	"Nutzungsplanung.Grundnutzung.Herkunft.TYPE" -> "Nutzungsplanung.Grundnutzung.Herkunft"
func TypePath(ref string) string {
	return strings.TrimSuffix(ref, typeSuffix)
}

// TypeName returns the last dot-separated segment of a type path.
func TypeName(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}

// LocalCode returns the part of a leaf TID below its root TID.
// TIDs not under the root are returned unchanged.
func LocalCode(rootTID, tid string) string {
	return strings.TrimPrefix(tid, rootTID+".")
}
