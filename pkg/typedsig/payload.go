package typedsig

import (
	"encoding/json"
	"strconv"

	"github.com/DanTehrani/story-form-interface/pkg/form"
)

// BuildFormPayload constructs the typed payload a publisher signs: the
// derived ID plus every canonical field of the content. Verification later
// rebuilds this payload from the published record byte for byte.
func BuildFormPayload(d Domain, id string, c form.Content) (TypedData, error) {
	if err := form.Validate(c); err != nil {
		return TypedData{}, err
	}
	questions, err := json.Marshal(c.Questions)
	if err != nil {
		return TypedData{}, err
	}
	settings, err := json.Marshal(c.Settings)
	if err != nil {
		return TypedData{}, err
	}
	return TypedData{
		Domain:      d,
		PrimaryType: "Form",
		Types:       FormTypes,
		Message: map[string]string{
			"id":          id,
			"title":       c.Title,
			"description": c.Description,
			"unixTime":    strconv.FormatInt(c.UnixTime, 10),
			"questions":   string(questions),
			"settings":    string(settings),
			"owner":       c.Owner,
			"status":      c.Status,
			"appId":       c.AppID,
		},
	}, nil
}

// BuildSubmissionPayload constructs the envelope payload for an identified
// submission.
func BuildSubmissionPayload(d Domain, formID string, answers []string, unixTime int64, appID string) (TypedData, error) {
	encoded, err := json.Marshal(answers)
	if err != nil {
		return TypedData{}, err
	}
	return TypedData{
		Domain:      d,
		PrimaryType: "Submission",
		Types:       SubmissionTypes,
		Message: map[string]string{
			"formId":   formID,
			"answers":  string(encoded),
			"unixTime": strconv.FormatInt(unixTime, 10),
			"appId":    appID,
		},
	}, nil
}
