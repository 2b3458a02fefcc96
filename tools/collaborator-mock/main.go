package main

import (
	"encoding/json"
	"log"
	"net/http"
)

// Stands in for the phone system and the timesheet vendor's query API so the
// services can run against docker-compose without real credentials.

type activeShift struct {
	EmployeeID string `json:"employee_id"`
	OnBreak    bool   `json:"on_break"`
}

func presenceHandler(w http.ResponseWriter, r *http.Request) {
	log.Printf("Presence flip: extension=%s state=%s", r.PathValue("id"), r.PathValue("state"))
	w.WriteHeader(http.StatusOK)
}

func activeShiftsHandler(w http.ResponseWriter, r *http.Request) {
	shifts := []activeShift{
		{EmployeeID: "5", OnBreak: false},
		{EmployeeID: "12", OnBreak: true},
	}
	log.Printf("Serving %d active shifts", len(shifts))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(shifts)
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /extensions/{id}/{state}", presenceHandler)
	mux.HandleFunc("GET /timesheets/active", activeShiftsHandler)

	log.Println("Collaborator mock server starting on port 8082...")
	log.Fatal(http.ListenAndServe(":8082", mux))
}
