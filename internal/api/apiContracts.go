package api

import "time"

type JobResponse struct {
	Id         string            `json:"id" example:"3f1c2a9e-8d4b-4c61-9f0e-2b7d5a1c4e88"`
	DocumentId string            `json:"document_id" example:"a41e0c5d-1b2f-4f7a-8c3e-6d9b0e2f1a77"`
	Result     Result            `json:"result"`
	Error      *JobOutgoingError `json:"error,omitempty"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"422"`
	Message string `json:"message" example:"PDF is empty or scanned image"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type Result struct {
	Status     string `json:"status" example:"COMPLETE"`
	Step       string `json:"step,omitempty" example:"Complete"`
	ChunkCount int    `json:"chunk_count,omitempty" example:"12"`
}

type InitJobResponse struct {
	Id         string `json:"id"`
	DocumentId string `json:"document_id"`
	StatusURL  string `json:"status_url"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error" example:"Missing user_id parameter"`
}

type DocumentResponse struct {
	Id        string    `json:"id" example:"a41e0c5d-1b2f-4f7a-8c3e-6d9b0e2f1a77"`
	Name      string    `json:"name" example:"week1.pdf"`
	URL       string    `json:"url" example:"http://localhost:3000/files/student-1/week1.pdf"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatResponse struct {
	Answer  string   `json:"answer" example:"Osmosis is the movement of water across a membrane (week1.pdf)."`
	Sources []string `json:"sources,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// requests---------------------

type ChatRequest struct {
	Question string `json:"question" validate:"required" example:"What is osmosis?"`
	UserId   string `json:"user_id" validate:"required" example:"student-1"`
}
