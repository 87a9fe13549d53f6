package general

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const runIdNamespace = "f1c8f8d4-1a8e-4b2c-9d3f-5e6c7b8a9d0c"

// GetCurrentDir returns the parent of the calling source file's directory.
func GetCurrentDir() string {
	_, filename, _, _ := runtime.Caller(1)
	return filepath.Dir(filepath.Dir(filename))
}

func GenerateUUID5StringFromByteArray(p []byte) string {
	namespaceUUID, err := uuid.Parse(runIdNamespace)
	if err != nil {
		slog.Warn(fmt.Sprintf("Error parsing namespace UUID: %+v", err))
	}
	return uuid.NewSHA1(namespaceUUID, p).String()
}

// NewRunId derives a run identifier from the start time and the symbol being traded.
func NewRunId(symbol string, startedAt time.Time) string {
	return GenerateUUID5StringFromByteArray([]byte(symbol + "|" + startedAt.Format(time.RFC3339Nano)))
}

func ConvertMixedTypesToFloat64Array(data []interface{}) ([]float64, error) {
	resultArray := make([]float64, 0, len(data))

	var err error
	for _, element := range data {
		elementFloat, ok := element.(float64)
		if !ok {
			elementString, ok := element.(string)
			if !ok {
				return nil, fmt.Errorf("invalid element type: %v", element)
			}
			elementFloat, err = strconv.ParseFloat(elementString, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid element type: %v", element)
			}
		}
		resultArray = append(resultArray, elementFloat)
	}

	return resultArray, nil
}

// AtomicWriteFile replaces path with data so readers never see a partial file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

func GetSystemUsage() map[string]string {
	report := make(map[string]string)

	report["num_cpu"] = fmt.Sprintf("%d", runtime.NumCPU())
	report["num_goroutine"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	memoryUsage := runtime.MemStats{}
	runtime.ReadMemStats(&memoryUsage)
	report["memory_usage"] = fmt.Sprintf("%d", memoryUsage.Alloc)
	report["memory_sys"] = fmt.Sprintf("%d", memoryUsage.Sys)
	report["memory_heap_alloc"] = fmt.Sprintf("%d", memoryUsage.HeapAlloc)
	report["memory_heap_inuse"] = fmt.Sprintf("%d", memoryUsage.HeapInuse)

	return report
}
