// Package media turns stored avatar keys into URLs a browser can load.
//
// Static joins keys onto a base URL. S3 presigns GetObject URLs, loading
// region and credentials the way the AWS SDK does by default:
//
//	r, err := media.NewS3(ctx, media.S3Config{
//	    Bucket: "noai-avatars",
//	    Region: "eu-west-1",
//	})
//
// FromConfig picks one from the media section of noai.json.
package media
