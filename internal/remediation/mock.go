package remediation

import "strings"

type mockRule struct {
	name    string
	status  Status
	details string
}

var pdfMockRules = []mockRule{
	{"Document Title", StatusPassed, "PDF document has a descriptive title in document properties"},
	{"Document Language", StatusPassed, "Document language is properly set to English (US)"},
	{"Tagged PDF Structure", StatusPassed, "Document is properly tagged for screen reader accessibility"},
	{"Heading Structure", StatusFailed, "Heading hierarchy is broken - H3 found without preceding H2"},
	{"Alternative Text for Images", StatusFailed, "3 images found without alternative text descriptions"},
	{"Table Headers", StatusManualCheck, "2 tables found - verify header cells are properly marked"},
	{"Link Text", StatusPassed, "All hyperlinks have descriptive text and proper destinations"},
	{"Color Contrast", StatusFailed, "Text color contrast insufficient (3.2:1, requires 4.5:1 for WCAG AA)"},
	{"Reading Order", StatusManualCheck, "Complex layout detected - verify logical reading order with screen reader"},
	{"Form Fields", StatusPassed, "All form fields have proper labels and descriptions"},
	{"Bookmarks", StatusPassed, "Document includes navigation bookmarks for long content"},
	{"Text Spacing", StatusPassed, "Line and paragraph spacing meets accessibility guidelines"},
	{"Font Embedding", StatusPassed, "All fonts are properly embedded for consistent display"},
	{"Security Restrictions", StatusPassed, "No security restrictions prevent assistive technology access"},
	{"Multimedia Content", StatusFailed, "Video content lacks captions and audio descriptions"},
	{"Annotations", StatusManualCheck, "Comments and annotations found - verify accessibility for screen readers"},
}

var wordMockRules = []mockRule{
	{"Document Title", StatusPassed, "Document has a descriptive title in document properties"},
	{"Document Language", StatusPassed, "Document language is properly set to English (US)"},
	{"Heading Structure", StatusFailed, "Missing Heading 2 between Heading 1 and Heading 3 - breaks hierarchy"},
	{"Alternative Text for Images", StatusFailed, "2 images found without alt text. Add meaningful descriptions."},
	{"Table Headers", StatusManualCheck, "3 tables found. Verify header rows are properly designated."},
	{"Link Text", StatusFailed, "Found 2 links with generic text like 'click here' - use descriptive text"},
	{"Color Contrast", StatusPassed, "Text color contrast meets WCAG AA standards (4.5:1 or higher)"},
	{"Lists Structure", StatusPassed, "All lists use proper Word list formatting (not manual bullets)"},
	{"Reading Order", StatusManualCheck, "Review document reading order with screen reader to ensure logical flow"},
	{"Font and Formatting", StatusFailed, "Text formatting relies on color alone - add additional indicators"},
	{"Hyperlink Destinations", StatusPassed, "All hyperlinks have clear, descriptive destinations"},
	{"Content Controls", StatusManualCheck, "Form elements found - verify labels and accessibility properties"},
	{"Text Spacing", StatusPassed, "Line spacing and paragraph spacing meet accessibility guidelines"},
	{"Embedded Objects", StatusFailed, "Embedded objects lack proper alternative descriptions"},
	{"Document Structure", StatusPassed, "Document uses proper styles instead of manual formatting"},
	{"Page Layout", StatusManualCheck, "Complex layout detected - verify accessibility with assistive technology"},
}

// MockReport builds the demonstration report served when the backend is
// unreachable and the demo fallback is enabled.
func MockReport(fileName string) Report {
	rules, prefix, fileType := pdfMockRules, "PDF Accessibility - ", "PDF"
	summary := Summary{SuccessCount: 22, FailedCount: 4, ManualCheckCount: 3}
	if IsWord(fileName) {
		rules, prefix, fileType = wordMockRules, "Word Accessibility - ", "Word Document"
		summary = Summary{SuccessCount: 24, FailedCount: 5, ManualCheckCount: 4}
	}

	results := make([]RuleResult, 0, len(rules))
	for _, r := range rules {
		results = append(results, RuleResult{Rule: prefix + r.name, Status: r.status, Details: r.details})
	}
	return Report{
		FileName: strings.TrimSpace(fileName),
		FileType: fileType,
		Summary:  summary,
		Results:  results,
		Mock:     true,
	}
}
