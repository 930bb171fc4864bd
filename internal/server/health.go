package server

import "net/http"

const (
	modelStatusLoaded  = "loaded"
	modelStatusLoading = "loading"
)

type healthResponse struct {
	Status        string             `json:"status"`
	ModelStatus   string             `json:"model_status"`
	ModelName     string             `json:"model_name"`
	Engine        string             `json:"engine,omitempty"`
	Device        string             `json:"device"`
	CUDAAvailable bool               `json:"cuda_available"`
	Version       string             `json:"version"`
	Env           map[string]*string `json:"env"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	status := modelStatusLoading
	if s.model != nil {
		status = modelStatusLoaded
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "running",
		ModelStatus:   status,
		ModelName:     s.opts.ModelName,
		Engine:        s.opts.Engine,
		Device:        string(s.opts.Device),
		CUDAAvailable: s.opts.AcceleratorAvailable,
		Version:       s.version,
		Env:           s.opts.Env,
	})
}
