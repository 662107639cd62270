package form

// Well-known tag names stamped on every log record so forms and
// submissions stay queryable by tag filter.
const (
	TagAppID  = "App-Id"
	TagType   = "Type"
	TagFormID = "Form-Id"
	TagOwner  = "Owner"

	RecordTypeForm       = "form"
	RecordTypeSubmission = "submission"
)
