package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	English = "en"
	Hindi   = "hi"
)

var supported = []language.Tag{language.English, language.Hindi}

var matcher = language.NewMatcher(supported)

var translations = map[string]map[string]string{
	English: {
		"jobCards.notFound":                   "Job card not found",
		"jobCards.alreadyCancelled":           "Job card is already cancelled",
		"jobCards.cannotCancelCompleted":      "Cannot cancel a completed job",
		"jobCards.cancelledSuccessfully":      "Job card cancelled successfully",
		"jobCards.cancellationReasonRequired": "Cancellation reason is required",
		"jobCards.terminal":                   "Job card is {{status}} and can no longer change status",
		"jobCards.customerCancelOnly":         "Customers can only cancel job cards",
		"jobCards.invalidStatus":              "Invalid status value",
		"jobCards.statusUpdated":              "Job card status updated successfully",
		"jobCards.badRequest":                 "Bad Request",

		"serviceRequests.notFound":                   "Service request not found",
		"serviceRequests.alreadyCancelled":           "Service request is already cancelled",
		"serviceRequests.cancelled":                  "Service request cancelled successfully",
		"serviceRequests.cancellationReasonRequired": "Cancellation reason is required",
		"serviceRequests.invalidAddress":             "Invalid address. Address and pincode are required",
		"serviceRequests.serviceTypeRequired":        "Service type is required",
		"serviceRequests.created":                    "Service request created successfully",
		"serviceRequests.updated":                    "Service request updated successfully",
		"serviceRequests.accepted":                   "Service request accepted successfully",
		"serviceRequests.alreadyAccepted":            "You have already accepted this service request",
		"serviceRequests.rejected":                   "Service request rejected",
		"serviceRequests.alreadyAssigned":            "Service request already accepted by another provider",
		"serviceRequests.notPending":                 "Service request is {{status}}, only pending requests can be {{action}}",
		"serviceRequests.cannotCancel":               "Service request is {{status}} and cannot be cancelled",

		"reviews.jobNotCompleted": "Reviews can only be created for completed job cards",
		"reviews.duplicate":       "You have already reviewed this job card",

		"common.unauthorized": "Unauthorized",
		"common.forbidden":    "You do not have permission to perform this action",
		"common.notFound":     "Not found",
		"common.serverError":  "Internal server error",
		"common.success":      "Success",
	},
	Hindi: {
		"jobCards.notFound":                   "जॉब कार्ड नहीं मिला",
		"jobCards.alreadyCancelled":           "जॉब कार्ड पहले से ही रद्द है",
		"jobCards.cannotCancelCompleted":      "पूर्ण किए गए जॉब को रद्द नहीं किया जा सकता",
		"jobCards.cancelledSuccessfully":      "जॉब कार्ड सफलतापूर्वक रद्द कर दिया गया",
		"jobCards.cancellationReasonRequired": "रद्दीकरण का कारण आवश्यक है",
		"jobCards.badRequest":                 "गलत अनुरोध",

		"serviceRequests.notFound":                   "सेवा अनुरोध नहीं मिला",
		"serviceRequests.alreadyCancelled":           "सेवा अनुरोध पहले से ही रद्द है",
		"serviceRequests.cancelled":                  "सेवा अनुरोध सफलतापूर्वक रद्द कर दिया गया",
		"serviceRequests.cancellationReasonRequired": "रद्दीकरण का कारण आवश्यक है",
		"serviceRequests.invalidAddress":             "अमान्य पता। पता और पिनकोड आवश्यक हैं",
		"serviceRequests.serviceTypeRequired":        "सेवा प्रकार आवश्यक है",
		"serviceRequests.created":                    "सेवा अनुरोध सफलतापूर्वक बनाया गया",
		"serviceRequests.updated":                    "सेवा अनुरोध सफलतापूर्वक अपडेट किया गया",

		"common.unauthorized": "अनधिकृत",
		"common.notFound":     "नहीं मिला",
		"common.serverError":  "आंतरिक सर्वर त्रुटि",
		"common.success":      "सफलता",
	},
}

// T returns the translation of key in lang, falling back to English and then
// to the key itself. {{name}} placeholders are replaced from params.
func T(lang, key string, params map[string]string) string {
	value, ok := translations[lang][key]
	if !ok {
		value, ok = translations[English][key]
	}
	if !ok {
		return key
	}
	for name, v := range params {
		value = strings.ReplaceAll(value, "{{"+name+"}}", v)
	}
	return value
}

// Has reports whether key exists in the English table.
func Has(key string) bool {
	_, ok := translations[English][key]
	return ok
}

// Detect picks a supported language. An explicit override ("hi", "en") wins;
// otherwise the Accept-Language header is negotiated, defaulting to English.
func Detect(override, acceptLanguage string) string {
	if override = strings.ToLower(strings.TrimSpace(override)); override != "" {
		if _, ok := translations[override]; ok {
			return override
		}
	}
	if acceptLanguage == "" {
		return English
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return English
	}
	base, _ := supported[idx].Base()
	return base.String()
}
