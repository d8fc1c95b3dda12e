// Package oberr defines the typed error taxonomy for backend operations.
//
// Every failure that crosses the client boundary is an [*Error] carrying a
// classification code, a request id, and a retryability verdict. Raw
// transport failures are turned into typed errors by a [Classifier], which
// also feeds per-(code, operation) counters in an injectable [Stats] store.
//
// # Usage
//
// Classify a transport failure:
//
//	stats := oberr.NewStats()
//	cls := oberr.NewClassifier(stats)
//
//	resp, err := httpClient.Do(req)
//	if err != nil {
//	    return cls.Classify(err, "query", reqID)
//	}
//	if resp.StatusCode/100 != 2 {
//	    return cls.ClassifyStatus(resp.StatusCode, body, "query", reqID)
//	}
//
// Stats stores are plain values created with NewStats; tests create their
// own isolated instance instead of sharing process globals.
package oberr
