package apierrors

// OpenAIType maps an HTTP status to the OpenAI error-body "type" field.
func OpenAIType(status int) string {
	switch status {
	case 400:
		return "invalid_request_error"
	case 401:
		return "authentication_error"
	case 403:
		return "permission_error"
	case 404:
		return "invalid_request_error"
	case 429:
		return "rate_limit_error"
	default:
		if status >= 500 {
			return "server_error"
		}
		return "invalid_request_error"
	}
}

// AnthropicType maps an HTTP status to the Anthropic error-body "type" field.
func AnthropicType(status int) string {
	switch status {
	case 400:
		return "invalid_request_error"
	case 401:
		return "authentication_error"
	case 403:
		return "permission_error"
	case 404:
		return "not_found_error"
	case 429:
		return "rate_limit_error"
	case 500, 502, 503:
		return "api_error"
	case 529:
		return "overloaded_error"
	default:
		if status >= 500 {
			return "api_error"
		}
		return "invalid_request_error"
	}
}

// OpenAIBody is the {error:{message,type,param,code}} shape from spec §6.
type OpenAIBody struct {
	Error OpenAIDetail `json:"error"`
}

type OpenAIDetail struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param"`
	Code    string  `json:"code"`
}

// AnthropicBody is the {type:"error", error:{type,message}} shape.
type AnthropicBody struct {
	Type  string          `json:"type"`
	Error AnthropicDetail `json:"error"`
}

type AnthropicDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ToOpenAIBody renders an *Error as the OpenAI error JSON body.
func ToOpenAIBody(e *Error) OpenAIBody {
	code := "internal_error"
	if e.Kind == KindRateLimitExhausted {
		code = "rate_limit_exceeded"
	}
	return OpenAIBody{Error: OpenAIDetail{
		Message: e.Message,
		Type:    OpenAIType(e.Status),
		Param:   nil,
		Code:    code,
	}}
}

// ToAnthropicBody renders an *Error as the Anthropic error JSON body.
func ToAnthropicBody(e *Error) AnthropicBody {
	return AnthropicBody{
		Type: "error",
		Error: AnthropicDetail{
			Type:    AnthropicType(e.Status),
			Message: e.Message,
		},
	}
}
