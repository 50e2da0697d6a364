package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	recognizeHandler := handlers.NewRecognizeHandler(s.engine, s.metrics)
	studentsHandler := handlers.NewStudentsHandler(s.engine, s.registry, s.metrics)
	statsHandler := handlers.NewStatsHandler(s.config, s.registry, s.engine, s.metrics)
	attendanceHandler := handlers.NewAttendanceHandler(s.engine, s.jobManager)

	s.router.Get("/api/v1/health", statsHandler.Health)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Recognition
		r.Post("/recognize", recognizeHandler.Recognize)
		r.Post("/recognize/batch", recognizeHandler.RecognizeBatch)

		// Students
		r.Post("/students", studentsHandler.Enroll)
		r.Get("/students", studentsHandler.List)
		r.Delete("/students/{studentId}", studentsHandler.Remove)
		r.Get("/students/duplicates", studentsHandler.Duplicates)

		// Attendance sessions (long-running batch jobs)
		r.Post("/attendance", attendanceHandler.Start)
		r.Get("/attendance/{jobId}", attendanceHandler.Status)
		r.Get("/attendance/{jobId}/events", attendanceHandler.Events)
		r.Delete("/attendance/{jobId}", attendanceHandler.Cancel)

		// Stats
		r.Get("/stats", statsHandler.Get)
	})
}
