package remediation

import "strings"

const defaultUnblockName = "YourFile.docx"

// UnblockCommand returns the PowerShell command that clears the
// mark-of-the-web from a downloaded file.
func UnblockCommand(fileName string) string {
	name := strings.ReplaceAll(fileName, "'", "")
	if strings.TrimSpace(name) == "" {
		name = defaultUnblockName
	}
	return `Unblock-File -Path 'C:\path\to\` + name + `'`
}
