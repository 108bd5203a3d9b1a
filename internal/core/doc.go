// Package core runs extraction jobs for the HTTP service.
//
// A job takes the path of a packaged workbook in the input bucket and turns
// it into CSV files in the output bucket:
//
//  1. A job slot is taken from the [JobLimiter].
//  2. A work directory named after the job id is created under the work base
//     and removed when the job ends, whatever the outcome.
//  3. The archive is downloaded to input.twbx and handed to the extractor.
//  4. Every produced CSV is uploaded to the path given by [BlobPath]. A
//     failed upload is recorded on its [OutputFile] and the others continue.
//
// # Error Handling
//
// Failures carry an errs.Kind. [MapError] turns them into a [UserMessage]
// with a stable code:
//
//   - ARC001-ARC002: the archive is corrupt or holds no extract
//   - CON001: the extract could not be opened
//   - DL001-DL002: the archive could not be downloaded
//   - UPL001: the CSV files could not be stored
//   - CFG001: object store settings are missing
//   - REQ001: the request was malformed
//   - BUSY001: no job slot became free
//   - JOB001-JOB002: the job was cancelled or ran out of time
//   - ERR000: anything else
package core
