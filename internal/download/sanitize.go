package download

import "strings"

// fileNameReplacer substitutes characters that are illegal in file names on
// common filesystems. Path separators become a look-alike so titles such as
// "Artist A/Artist B" stay readable.
var fileNameReplacer = strings.NewReplacer(
	`\`, "+",
	"/", "+",
	"?", "!",
	"*", "-",
	":", "-",
	"<", "",
	">", "",
	"|", "",
	`"`, "",
	"\x00", "",
)

// CleanFileName makes a release title safe to use as a file name. No other
// character is touched and the result is stable under repeated application.
func CleanFileName(title string) string {
	return fileNameReplacer.Replace(title)
}
