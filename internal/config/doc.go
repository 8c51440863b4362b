// Package config provides configuration loading for vtree services.
//
// Configuration lives in vtree.json or vtree.yaml. Load tries the JSON file
// first. Unset values are filled with defaults, VTREE_ADDR and
// VTREE_LOG_LEVEL override the file, and the result is validated.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "addr": ":8080",
//	    "readBufferSize": 4096,
//	    "writeBufferSize": 4096,
//	    "maxBodyBytes": 1048576,
//	    "shutdownTimeout": "10s"
//	  },
//	  "buffer": { "capacity": 65539 },
//	  "snapshot": {
//	    "backend": "s3",
//	    "bucket": "vtree-snapshots",
//	    "prefix": "prod/",
//	    "region": "eu-west-1"
//	  },
//	  "metrics": { "enabled": true, "namespace": "vtree" },
//	  "tracing": { "enabled": false },
//	  "log": { "level": "info", "format": "json" }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	fmt.Println(cfg.Server.Addr)
package config
