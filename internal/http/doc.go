// Package http serves rendered notes and the diagram bridge.
//
// Routes mount under the configured base path:
//   - Notes: /notes, /notes/{id}
//   - Attachments: /resources/{file}
//   - View assets: /assets/excalidraw/*, /assets/local-excalidraw/*
//   - Bridge: /bridge (websocket), /bridge/messages
//
// Host applications can mount the router on their own mux as needed.
package http
