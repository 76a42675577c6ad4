// Package services holds cross-cutting helpers shared by the pipeline
// stages: the error marker taxonomy the orchestrator classifies
// failures with, and context keys that thread job identity through
// stage execution.
package services
