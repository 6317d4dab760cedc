package mocks

//go:generate mockgen -destination=./mock_fetcher.go -package=mocks KlineStudio/internal/collector Fetcher,Lister
//go:generate mockgen -destination=./mock_renderer.go -package=mocks KlineStudio/internal/renderer Renderer
//go:generate mockgen -destination=./mock_recorder.go -package=mocks KlineStudio/internal/recorder Recorder
