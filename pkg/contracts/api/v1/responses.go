package api

// Response is the envelope of every successful JSON response.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Count  *int        `json:"count,omitempty"`
}

// Success wraps data in the envelope.
func Success(data interface{}) Response {
	return Response{Status: "success", Data: data}
}

// List wraps a collection and its size in the envelope.
func List(data interface{}, count int) Response {
	return Response{Status: "success", Data: data, Count: &count}
}

// BatchItemResponse reports the outcome for one file of a batch.
// Exactly one of Series and Error is set.
type BatchItemResponse struct {
	File   string      `json:"file"`
	Series interface{} `json:"series,omitempty"`
	Error  *ItemError  `json:"error,omitempty"`
}

// ItemError describes why one file of a batch failed.
type ItemError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BatchResponse summarises a batch.
type BatchResponse struct {
	Granularity string              `json:"granularity"`
	Succeeded   int                 `json:"succeeded"`
	Failed      int                 `json:"failed"`
	Items       []BatchItemResponse `json:"items"`
}
